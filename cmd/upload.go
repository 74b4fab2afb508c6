package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/sheet"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [workbook.xlsx]",
	Short: "Validate community data and publish it to the configured storage",
	Long: "Validate community data and publish it to the configured storage.\n" +
		"Without a workbook argument the needs and wants CSV exports are converted into one.",
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		upload(cmd, path)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("needs-csv", "", "needs sheet exported as CSV")
	uploadCmd.Flags().String("wants-csv", "", "wants sheet exported as CSV")
	uploadCmd.Flags().String("object", "", "object key to store the workbook under (default data.object)")
}

func upload(cmd *cobra.Command, path string) {
	ctx := context.Background()
	config, log := setup()
	schema := community.DefaultSchema()
	loader := sheet.NewLoader(schema, log)

	raw, wb, err := workbookForUpload(ctx, cmd, loader, path)
	if err != nil {
		log.Fatal("reading community data", zap.Error(err))
	}

	if err := sheet.Validate(schema, wb); err != nil {
		log.Fatal("community data failed validation", zap.Error(err))
	}

	key := config.Data.Object
	if o, _ := cmd.Flags().GetString("object"); o != "" {
		key = o
	}

	store, err := newStorage(ctx, config, "", log)
	if err != nil {
		log.Fatal("preparing storage", zap.Error(err))
	}

	obj, err := store.Store(ctx, bytes.NewReader(raw), key)
	if err != nil {
		log.Fatal("storing community data", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Println(string(pretty))
}

// workbookForUpload returns the xlsx bytes to store along with their parsed form.
func workbookForUpload(ctx context.Context, cmd *cobra.Command, loader *sheet.Loader, path string) ([]byte, *sheet.Workbook, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		wb, err := loader.ReadWorkbook(bytes.NewReader(raw))
		return raw, wb, err
	}

	needs, _ := cmd.Flags().GetString("needs-csv")
	wants, _ := cmd.Flags().GetString("wants-csv")
	if needs == "" || wants == "" {
		return nil, nil, fmt.Errorf("a workbook or both --needs-csv and --wants-csv are required")
	}

	wb, err := loader.ReadCSV(ctx, needs, wants)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	if err := loader.Write(&buf, wb); err != nil {
		return nil, nil, fmt.Errorf("building workbook: %w", err)
	}
	return buf.Bytes(), wb, nil
}
