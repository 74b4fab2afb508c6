package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/filtering"
	"github.com/spigell/community-ranker/internal/logger"
	"github.com/spigell/community-ranker/internal/payload"
	"github.com/spigell/community-ranker/internal/ranking"
	"github.com/spigell/community-ranker/internal/sheet"
)

const (
	PromptPrint          = "Print response"
	PromptNo             = "No"
	PromptReportBySize   = "Report by size"
	PromptFilters        = "Show needs filters"
	PromptResponseToFile = "Dump response to file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Procced?",
	Items: []string{PromptPrint, PromptNo, PromptReportBySize, PromptFilters, PromptResponseToFile},
}

var rankCmd = &cobra.Command{
	Use:   "rank <event-file>",
	Short: "Rank communities for the homebuyer request stored in a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rank(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().BoolP("auto-approve", "y", false, "print the response without asking")
	rankCmd.Flags().IntP("top-n", "n", 0, "number of communities to return (default from config, 3)")
	rankCmd.Flags().StringSlice("disable-filter", nil, "needs filter to skip (size, location, price, age)")

	viper.BindPFlag("top-n", rankCmd.Flags().Lookup("top-n"))
	viper.BindPFlag("disabled-filters", rankCmd.Flags().Lookup("disable-filter"))
}

func rank(cmd *cobra.Command, eventFile string) {
	ctx := context.Background()
	config, log := setup()
	schema := community.DefaultSchema()

	log.Info("starting the community-ranker", zap.String("version", version))

	req, err := payload.NewParser(schema).ParseFile(eventFile)
	if err != nil {
		log.Fatal("reading the request", zap.Error(err), zap.String("file", eventFile))
	}
	log = logger.WithFields(log, logger.RequestFields(logger.NewRequestID(), req.EmailAddress, config.Data.Source)...)

	loader := sheet.NewLoader(schema, log)
	src, err := newSource(ctx, config, loader, log)
	if err != nil {
		log.Fatal("preparing community data source", zap.Error(err))
	}

	wb, err := src.Load(ctx)
	if err != nil {
		log.Fatal("loading community data", zap.Error(err))
	}

	engine := &ranking.Engine{
		Schema:          schema,
		Logger:          log,
		TopN:            config.TopN,
		DisabledFilters: config.DisabledFilters,
	}

	outcome, err := engine.Run(ctx, wb.Needs, wb.Wants, req.Needs, req.Wants)
	if err != nil {
		log.Fatal("ranking failed", zap.Error(err))
	}

	if outcome.Status == ranking.StatusUnprocessable {
		log.Info("exiting", zap.String("reason", outcome.Reason))
		os.Exit(1)
	}

	response := ranking.NewResponse(req.EmailAddress, outcome)

	action := PromptPrint
	for {
		if cmd.Flag("auto-approve").Value.String() == "false" {
			_, action, err = prompt.Run()
			if err != nil {
				log.Fatal("exiting", zap.Error(err))
			}
		}

		if err := handleAction(action, log, config, response); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			log.Fatal("exiting", zap.Error(err))
		}

		if action == PromptPrint && cmd.Flag("auto-approve").Value.String() == "true" {
			return
		}
	}
}

func handleAction(action string, log *zap.Logger, config *Config, response *ranking.Response) error {
	switch action {
	case PromptPrint:
		pretty, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(pretty))
		return nil
	case PromptNo:
		log.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReportBySize:
		report := make(map[string][]string)
		for _, c := range response.Top {
			size, _ := c.Get("size")
			report[size.String()] = append(report[size.String()], c.Name)
		}
		pretty, _ := json.MarshalIndent(report, "", "  ")
		log.Info(string(pretty), zap.Int("communities count", len(response.Top)))
		return nil
	case PromptFilters:
		steps := filtering.Steps()
		for _, name := range config.DisabledFilters {
			filtering.DisableByName(steps, name, "disabled by configuration")
		}
		pretty, _ := json.MarshalIndent(filtering.Describe(steps), "", "  ")
		log.Info(string(pretty))
		return nil
	case PromptResponseToFile:
		filename, err := dumpToTmpFile(response)
		if err != nil {
			return fmt.Errorf("dump response to file: %w", err)
		}
		log.Info("dumping response to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func dumpToTmpFile(v any) (string, error) {
	f, err := os.CreateTemp("", app+"-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return f.Name(), nil
}
