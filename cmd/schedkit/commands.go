package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/schedkit/plugin/ai/aitime"
	aischedule "github.com/hrygo/schedkit/plugin/ai/schedule"
	"github.com/hrygo/schedkit/server/auth"
	apiv1 "github.com/hrygo/schedkit/server/router/api/v1"
	"github.com/hrygo/schedkit/server/timezone"
	"github.com/hrygo/schedkit/store/ics"
)

var envKeyReplacer = strings.NewReplacer("-", "_")

var parseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Parse a time expression into a schedule candidate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		messages := aitime.DefaultMessages
		if p.AIPromptLocale == "en" {
			messages = aitime.EnglishMessages
		}
		tz, _ := cmd.Flags().GetString("tz")
		times := aitime.NewService(p.Timezone,
			aitime.WithRollover(aitime.ParseRolloverPolicy(p.RolloverPolicy)),
			aitime.WithMessages(messages),
		)
		return printJSON(cmd, times.ParserFor(tz).ParseNow(strings.Join(args, " ")))
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Find free slots on a day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		dayFlag, _ := cmd.Flags().GetString("day")
		duration, _ := cmd.Flags().GetInt("duration")
		if duration <= 0 {
			return fmt.Errorf("--duration must be positive")
		}
		day, err := timezone.ParseDay(dayFlag, time.Now(), p.Location())
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := apiv1.NewAPIV1Service(p, st)
		if err != nil {
			return err
		}
		slots, err := svc.Resolver.FindFreeSlots(cmd.Context(), viper.GetInt32("user"), day, duration)
		if err != nil {
			return err
		}
		return printJSON(cmd, slots)
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Extract schedule suggestions from assistant prose on stdin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		prose, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		prompts := aischedule.PromptsFor(p.AIPromptLocale)
		extractor := aischedule.NewExtractor(p.Location())
		return printJSON(cmd, extractor.Extract(string(prose), prompts.TodayLabel, prompts.TomorrowLabel))
	},
}

var assistCmd = &cobra.Command{
	Use:   "assist <text>",
	Short: "Parse text, ask the agent when needed and check the result for conflicts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := apiv1.NewAPIV1Service(p, st)
		if err != nil {
			return err
		}
		result, err := svc.Assistant.Assist(cmd.Context(), aischedule.NewSession("cli"), viper.GetInt32("user"), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.ics>",
	Short: "Import events from an iCalendar file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		result, err := ics.NewImporter(st, p.Location()).Import(cmd.Context(), viper.GetInt32("user"), f)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the user's schedules to stdout as iCalendar",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer st.Close()

		out, err := ics.ExportUser(cmd.Context(), st, viper.GetInt32("user"), time.Now())
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API bearer token for --user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		secret := viper.GetString("jwt-secret")
		if secret == "" {
			return fmt.Errorf("--jwt-secret is required")
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := auth.GenerateAccessToken(secret, viper.GetInt32("user"), ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	parseCmd.Flags().String("tz", "", "timezone of the text; defaults to --timezone")
	slotsCmd.Flags().String("day", "today", `day to search: "YYYY-MM-DD", "today" or "tomorrow"`)
	slotsCmd.Flags().Int("duration", 60, "slot length in minutes")
	tokenCmd.Flags().Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
}
