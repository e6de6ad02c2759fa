package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelread/voxread/internal/article"
)

var playCmd = &cobra.Command{
	Use:   "play [URL|FILE]",
	Short: "Load and play a URL or local file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var art *article.Article
	switch {
	case len(args) == 0:
		return fmt.Errorf("play requires a URL or file argument (use 'queue play <id>' for queued items)")
	case isURL(args[0]):
		art, err = a.ld.FromURL(ctx, args[0])
	default:
		art, err = a.ld.FromFile(args[0])
	}
	if err != nil {
		return err
	}

	item := a.qc.AddArticle(art, art.Title, art.SiteName)
	a.eng.Load(art, nil)
	a.eng.Play()
	fmt.Printf("playing %q (%d paragraphs, queued as %s)\n", art.Title, art.ParagraphCount(), item.ID)

	waitForInterrupt()
	a.eng.Stop()
	return nil
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && u.Scheme != "" && strings.Contains(s, "://")
}
