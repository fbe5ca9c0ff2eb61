package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/roxdl/internal/config"
	"github.com/tanq16/roxdl/internal/output"
	"github.com/tanq16/roxdl/internal/scheduler"
	"github.com/tanq16/roxdl/internal/upload"
	"github.com/tanq16/roxdl/internal/utils"
)

var (
	outputDir   string
	filename    string
	pages       string
	archiveName string
	threads     int
	metadata    bool
	uploadURL   string
	profile     string
	timeout     time.Duration
	userAgent   string
	proxyURL    string
	headers     []string
	configFile  string
	debug       bool
	logFile     string
	noProgress  bool
)

var RoxdlVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "roxdl [GALLERY_URL...]",
	Short:   "roxdl downloads paginated image galleries to a folder or a zip archive",
	Version: RoxdlVersion,
	Args:    cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		closer, err := utils.InitLogger(debug, logFile)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			cmd.Help()
			os.Exit(1)
		}
		if err := runGalleries(cmd, args); err != nil {
			os.Exit(1)
		}
	},
}

// runGalleries downloads the galleries at urls with the layered configuration
// of cmd. The error is non-nil when any gallery failed.
func runGalleries(cmd *cobra.Command, urls []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		output.PrintError(err.Error())
		return err
	}
	return runJobs(buildJobs(cfg, urls), cfg.GalleryBase)
}

var logCloser io.Closer

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", config.DefaultOutput, "Output directory")
	rootCmd.PersistentFlags().StringVarP(&filename, "filename", "f", config.DefaultFilename, "File name template ({gallery_name}, {gallery_id}, {page_num} counted from 1, {pages_num})")
	rootCmd.PersistentFlags().StringVarP(&pages, "pages", "p", "0,-1", "Page range START,END (inclusive, negative values count from the end)")
	rootCmd.PersistentFlags().StringVarP(&archiveName, "archive", "a", "", "Write pages into <output>/<NAME>.zip instead of loose files")
	rootCmd.PersistentFlags().IntVarP(&threads, "threads", "t", 1, "Number of page workers per gallery (above 5 enables high-thread-mode)")
	rootCmd.PersistentFlags().BoolVarP(&metadata, "metadata", "m", false, "Write gallery metadata to "+utils.MetadataFile)
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Referer: https://example.com'); can be specified multiple times")

	// flags without shorthand
	rootCmd.PersistentFlags().StringVar(&uploadURL, "upload", "", "Upload results to s3://bucket/prefix")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "default", "AWS profile used for --upload")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "Connection timeout (eg. 5s, 10m)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", utils.ToolUserAgent, "User agent ('randomize' picks a browser agent)")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "HTTP/HTTPS proxy URL (credentials may be embedded)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (defaults to $"+utils.EnvPrefix+"CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append JSON debug logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the live progress display")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// loadConfig layers the config file, ROXDL_* variables and explicitly set flags
// over the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	path := configFile
	if path == "" {
		path = os.Getenv(utils.EnvPrefix + "CONFIG")
	}
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return cfg, err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = outputDir
	}
	if flags.Changed("filename") {
		cfg.Filename = filename
	}
	if flags.Changed("pages") {
		p, err := config.ParsePages(pages)
		if err != nil {
			return fmt.Errorf("invalid --pages: %w", err)
		}
		cfg.Pages = p
	}
	if flags.Changed("archive") {
		cfg.Archive = archiveName
	}
	if flags.Changed("threads") {
		cfg.Threads = threads
	}
	if flags.Changed("metadata") {
		cfg.Metadata = metadata
	}
	if flags.Changed("upload") {
		cfg.Upload = uploadURL
	}
	if flags.Changed("profile") {
		cfg.Profile = profile
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = userAgent
	}
	if flags.Changed("proxy") {
		cfg.Proxy = proxyURL
	}
	if flags.Changed("header") {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range utils.ParseHeaderArgs(headers) {
			cfg.Headers[k] = v
		}
	}
	return nil
}

func newJob(cfg config.Config, url string) utils.GalleryJob {
	return utils.GalleryJob{
		ID:  uuid.NewString(),
		URL: url,
		Target: utils.DownloadTarget{
			Directory:        cfg.Output,
			FilenameTemplate: cfg.Filename,
			ArchiveName:      cfg.Archive,
		},
		Pages:            cfg.Pages,
		Threads:          cfg.Threads,
		Metadata:         cfg.Metadata,
		Upload:           utils.UploadTarget{URL: cfg.Upload, Profile: cfg.Profile},
		HTTPClientConfig: cfg.HTTPClientConfig(),
	}
}

func buildJobs(cfg config.Config, urls []string) []utils.GalleryJob {
	jobs := make([]utils.GalleryJob, 0, len(urls))
	for _, url := range urls {
		jobs = append(jobs, newJob(cfg, url))
	}
	return jobs
}

func newUploader(ctx context.Context, target utils.UploadTarget) (scheduler.Uploader, error) {
	return upload.New(ctx, target)
}

// runJobs drives the scheduler under the output manager and returns an error
// when any gallery failed.
func runJobs(jobs []utils.GalleryJob, galleryBase string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := output.NewManager()
	if !noProgress {
		manager.StartDisplay()
		utils.SetConsoleOutput(manager.LogWriter())
	}
	results, err := scheduler.Run(ctx, jobs, scheduler.Options{
		Reporter:    manager,
		GalleryBase: galleryBase,
		NewUploader: newUploader,
	})
	manager.StopDisplay()
	utils.SetConsoleOutput(os.Stderr)
	for _, r := range results {
		log.Debug().Str("op", "cmd/root").Str("job", r.JobID).Str("gallery", r.GalleryID).Int("written", r.Written).
			Ints("skipped", r.Skipped).Strs("artifacts", r.Artifacts).Msg("gallery finished")
	}
	if err != nil {
		log.Error().Str("op", "cmd/root").Err(err).Msg("gallery download failed")
		output.PrintError("Encountered failed gallery download(s)")
	}
	return err
}
