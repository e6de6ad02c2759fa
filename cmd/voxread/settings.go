package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kestrelread/voxread/internal/store"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View or change persisted playback settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings record",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.db.Close()
		s := a.settings
		fmt.Printf("rate:             %.2f\n", s.Rate)
		fmt.Printf("lang:             %s\n", s.Lang)
		fmt.Printf("voiceName:        %s\n", s.VoiceName)
		fmt.Printf("voiceGender:      %s\n", s.VoiceGender)
		fmt.Printf("wakeLock:         %t\n", s.WakeLock)
		fmt.Printf("theme:            %s\n", s.Theme)
		fmt.Printf("deviceVoiceOnly:  %t\n", s.DeviceVoiceOnly)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set one settings field and persist it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.db.Close()
		s := a.settings
		field, value := args[0], args[1]
		switch field {
		case "rate":
			r, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", value, err)
			}
			s.Rate = r
		case "lang":
			s.Lang = store.LangPref(value)
		case "voiceName":
			s.VoiceName = value
		case "voiceGender":
			s.VoiceGender = store.VoiceGender(value)
		case "wakeLock":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid wakeLock %q: %w", value, err)
			}
			s.WakeLock = b
		case "theme":
			s.Theme = store.Theme(value)
		case "deviceVoiceOnly":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid deviceVoiceOnly %q: %w", value, err)
			}
			s.DeviceVoiceOnly = b
		default:
			return fmt.Errorf("unknown settings field %q", field)
		}
		a.db.SaveSettings(s)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}
