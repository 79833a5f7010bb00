package cmd

import (
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/unstableunicorn/avrbootjack/converter"
	"github.com/unstableunicorn/avrbootjack/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "intelhex2array <bootloader.hex>",
	Short: "Convert an Intel HEX bootloader into a C header for bootjack",
	Long: `Convert an Intel HEX bootloader image into new_boot.h, the header the
bootjack updater is built with.

Data record payloads are concatenated in file order, padded with 0xFF up to
a whole number of 256 byte flash pages, and written out as NUMBER_OF_PAGES
plus the newbootloader byte array. All other record types are ignored and
checksums are not verified.

Example:
  intelhex2array build/bootloader.hex`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringP("out", "o", converter.DefaultOutput, "Output header file")
	rootCmd.Flags().Int("max-pages", 0, "Fail if the image needs more flash pages than this (0 for no limit)")
	rootCmd.Flags().String("metrics-file", "", "Write conversion metrics in Prometheus textfile format")
	rootCmd.Flags().BoolP("verbose", "v", false, "Log every record")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputFile := args[0]
	outputFile, _ := cmd.Flags().GetString("out")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	log.SetFlags(log.Lmicroseconds | log.Lshortfile)

	opts := []converter.Option{converter.WithMaxPages(maxPages)}
	if verbose {
		opts = append(opts, converter.WithVerbose())
	}

	result, err := converter.ConvertFile(inputFile, outputFile, opts...)
	if err != nil {
		return err
	}

	if metricsFile != "" {
		collector := metrics.NewCollector()
		collector.Observe(result.DataRecords, result.Skipped, result.PayloadBytes, result.PaddingBytes, result.Pages, time.Now())
		if err := collector.WriteTextfile(metricsFile); err != nil {
			return err
		}
	}

	log.Printf("Successfully converted %s -> %s: %d data bytes, %d pages", inputFile, outputFile, result.PayloadBytes, result.Pages)
	return nil
}
