// Package main is the entry point for the midiroll CLI
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/james-see/midiroll/pkg/api"
	"github.com/james-see/midiroll/pkg/config"
	"github.com/james-see/midiroll/pkg/dataset"
	"github.com/james-see/midiroll/pkg/pianoroll"
	"github.com/james-see/midiroll/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	div        int
	noPedal    bool
	verbose    bool

	outputFile string
	rollIndex  int

	datasetOut string
	recursive  bool
	extensions []string
	minSteps   int
	maxSteps   int
	sidecar    string

	splitRatio float64
	serverPort int

	cfg    *config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midiroll",
	Short: "Convert between MIDI files and quantized piano-rolls",
	Long: `midiroll converts standard MIDI files into quantized piano-roll records
and back, and builds piano-roll datasets from directories of MIDI files.

Examples:
  midiroll midi2roll song.mid -o song.json
  midiroll roll2midi song.json -o song.mid
  midiroll roll2midi dataset.json --index 3 -o third.mid
  midiroll tokens2midi generated.txt
  midiroll convert song.mid -o song.txt
  midiroll build ./midi --recursive -o dataset.json
  midiroll split dataset.json --ratio 0.9
  midiroll tui
  midiroll serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Detects the input and output formats from the file names (falling back to the input content) and converts.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var midi2rollCmd = conversionCmd("midi2roll <input.mid>", "Quantize MIDI into a piano-roll record", pianoroll.FormatMIDI, pianoroll.FormatRoll)

var midi2tokensCmd = conversionCmd("midi2tokens <input.mid>", "Quantize MIDI into a token sequence", pianoroll.FormatMIDI, pianoroll.FormatTokens)

var roll2midiCmd = conversionCmd("roll2midi <input.json>", "Render a piano-roll record (or a dataset entry) as MIDI", pianoroll.FormatRoll, pianoroll.FormatMIDI)

var tokens2midiCmd = conversionCmd("tokens2midi <input.txt>", "Render a token sequence as MIDI", pianoroll.FormatTokens, pianoroll.FormatMIDI)

var buildCmd = &cobra.Command{
	Use:   "build <dir>",
	Short: "Build a piano-roll dataset from a directory of MIDI files",
	Long: `Parses every matching file in a directory into a piano-roll. Files that fail
to parse are logged and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

var splitCmd = &cobra.Command{
	Use:   "split <dataset.json>",
	Short: "Split a dataset into train and validation files",
	Args:  cobra.ExactArgs(1),
	RunE:  runSplit,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func conversionCmd(use, short string, from, to pianoroll.Format) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversion(args[0], from, to)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", fmt.Sprintf("Output %s file path", to.Extension()))
	if from == pianoroll.FormatRoll {
		cmd.Flags().IntVar(&rollIndex, "index", -1, "Read entry N of a dataset file instead of a single roll")
	}
	return cmd
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "midiroll.yaml", "Config file path")
	rootCmd.PersistentFlags().IntVar(&div, "div", 0, "Steps per beat (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noPedal, "no-pedal", false, "Ignore the sustain pedal")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	// Convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	// build command
	buildCmd.Flags().StringVarP(&datasetOut, "output", "o", "dataset.json", "Output dataset file")
	buildCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	buildCmd.Flags().StringSliceVar(&extensions, "ext", nil, "File extensions to include (overrides config)")
	buildCmd.Flags().IntVar(&minSteps, "min-steps", 0, "Drop rolls shorter than this")
	buildCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Drop rolls longer than this")
	buildCmd.Flags().StringVar(&sidecar, "sidecar", "", "Read per-file metadata from sidecar files with this extension, e.g. .yaml")

	// split command
	splitCmd.Flags().Float64Var(&splitRatio, "ratio", 0.8, "Share of items in the train set")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(midi2rollCmd)
	rootCmd.AddCommand(midi2tokensCmd)
	rootCmd.AddCommand(roll2midiCmd)
	rootCmd.AddCommand(tokens2midiCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads the config, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if div > 0 {
		cfg.Quantize.Div = div
	}
	if noPedal {
		pedal := false
		cfg.Quantize.Pedal = &pedal
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if verbose {
		level = log.DebugLevel
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{Level: level, Prefix: "midiroll"})
	logger.Debug("loaded config", "path", configPath, "div", cfg.Quantize.Div)
	return nil
}

func getOutputPath(input string, format pianoroll.Format) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + format.Extension()
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]

	logger.Info("converting", "input", input, "output", outputFile)
	if err := pianoroll.ConvertFile(input, outputFile, cfg.Options()); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runConversion(input string, from, to pianoroll.Format) error {
	output := getOutputPath(input, to)

	roll, err := readRoll(input, from)
	if err != nil {
		return err
	}

	result, err := roll.Encode(to)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result, 0644); err != nil {
		return err
	}

	logger.Debug("converted", "steps", roll.Len(), "ticks_per_step", roll.MetaData.TicksPerStep)
	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}

func readRoll(input string, from pianoroll.Format) (*pianoroll.PianoRoll, error) {
	if from == pianoroll.FormatRoll && rollIndex >= 0 {
		ds, err := dataset.Load(input)
		if err != nil {
			return nil, err
		}
		if rollIndex >= ds.Len() {
			return nil, fmt.Errorf("index %d out of range, dataset has %d items", rollIndex, ds.Len())
		}
		return ds.At(rollIndex), nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	return pianoroll.Read(data, from, cfg.Options())
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b := &dataset.Builder{
		Dir:        args[0],
		Recursive:  recursive || cfg.Dataset.Recursive,
		Extensions: cfg.Dataset.Extensions,
		Parser:     dataset.MIDIParser{Options: cfg.Options()},
		Logger:     logger,
	}
	if len(extensions) > 0 {
		b.Extensions = extensions
	}

	if ext := firstNonEmpty(sidecar, cfg.Dataset.Sidecar); ext != "" {
		b.Metadata = dataset.SidecarMetadata{Ext: ext}
	}

	var filters []dataset.Filter
	if n := firstPositive(minSteps, cfg.Dataset.MinSteps); n > 0 {
		filters = append(filters, dataset.MinSteps(n))
	}
	if n := firstPositive(maxSteps, cfg.Dataset.MaxSteps); n > 0 {
		filters = append(filters, dataset.MaxSteps(n))
	}
	if len(filters) > 0 {
		b.Filter = dataset.All(filters...)
	}

	ds, report, err := b.Build(ctx)
	if err != nil {
		return err
	}
	ds.MetaData["div"] = cfg.Quantize.Div
	ds.MetaData["source"] = args[0]

	if err := ds.Save(datasetOut); err != nil {
		return err
	}

	fmt.Printf("Wrote %d piano-rolls to %s (%d found, %d failed, %d filtered)\n",
		ds.Len(), datasetOut, report.Found, report.Failed(), report.Filtered)
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	input := args[0]

	ds, err := dataset.Load(input)
	if err != nil {
		return err
	}

	train, valid, err := ds.Split(splitRatio)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(input, filepath.Ext(input))
	trainPath, validPath := base+"_train.json", base+"_valid.json"
	if err := train.Save(trainPath); err != nil {
		return err
	}
	if err := valid.Save(validPath); err != nil {
		return err
	}

	fmt.Printf("Split %s -> %s (%d), %s (%d)\n", input, trainPath, train.Len(), validPath, valid.Len())
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cfg.Options())
}

func runServe(cmd *cobra.Command, args []string) error {
	port := cfg.Server.Port
	if serverPort > 0 {
		port = serverPort
	}
	logger.Info("starting API server", "port", port)
	return api.StartServer(port, cfg.Options())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
