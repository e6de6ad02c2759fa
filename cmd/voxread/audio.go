package main

import (
	"time"

	"github.com/kestrelread/voxread/internal/audioplayer"
)

// newAudioPlayer opens the default oto device, waiting (briefly) for it
// to report ready, matching the teacher's own context-ready-channel
// pattern from tts/audio/player.go's TODO this package replaces.
func newAudioPlayer() (*audioplayer.Player, <-chan struct{}, error) {
	player, ready, err := audioplayer.NewPlayer(audioplayer.DefaultFormat)
	if err != nil {
		return nil, nil, err
	}
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
	}
	return player, ready, nil
}
