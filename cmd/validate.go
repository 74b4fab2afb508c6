package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/payload"
	"github.com/spigell/community-ranker/internal/sheet"
)

var validateDataCmd = &cobra.Command{
	Use:   "validate-data [workbook.xlsx]",
	Short: "Check community data, a local workbook or the configured source",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		validateData(path)
	},
}

var validatePayloadCmd = &cobra.Command{
	Use:   "validate-payload <event-file>",
	Short: "Check a homebuyer request without ranking",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		validatePayload(args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateDataCmd)
	rootCmd.AddCommand(validatePayloadCmd)
}

func validateData(path string) {
	config, log := setup()
	schema := community.DefaultSchema()

	wb, err := loadWorkbook(context.Background(), config, schema, path, log)
	if err != nil {
		log.Fatal("loading community data", zap.Error(err))
	}

	if err := sheet.Validate(schema, wb); err != nil {
		var dataErr *sheet.DataError
		if errors.As(err, &dataErr) {
			for _, problem := range dataErr.Messages() {
				log.Error("invalid community data", zap.String("problem", problem))
			}
		}
		log.Fatal("community data failed validation", zap.Error(err))
	}

	log.Info("community data is valid",
		zap.Int("communities", wb.Needs.Len()),
		zap.Strings("needs columns", wb.Needs.Columns),
		zap.Strings("wants columns", wb.Wants.Columns),
	)
}

func validatePayload(eventFile string) {
	_, log := setup()

	req, err := payload.NewParser(community.DefaultSchema()).ParseFile(eventFile)
	if err != nil {
		var v *payload.ValidationError
		if errors.As(err, &v) {
			for _, problem := range v.Problems {
				log.Error("invalid payload", zap.String("problem", problem))
			}
		}
		log.Fatal("payload failed validation", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(req, "", "  ")
	fmt.Println(string(pretty))
}
