package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/roxdl/internal/config"
	"github.com/tanq16/roxdl/internal/output"
	"github.com/tanq16/roxdl/internal/utils"
	"gopkg.in/yaml.v3"
)

// BatchEntry is one gallery of a batch file. Unset fields inherit the
// command line configuration.
type BatchEntry struct {
	URL      string `yaml:"url"`
	Output   string `yaml:"output,omitempty"`
	Filename string `yaml:"filename,omitempty"`
	Archive  string `yaml:"archive,omitempty"`
	Pages    []int  `yaml:"pages,omitempty"`
	Threads  int    `yaml:"threads,omitempty"`
	Metadata *bool  `yaml:"metadata,omitempty"`
	Upload   string `yaml:"upload,omitempty"`
}

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Download every gallery listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runBatch(cmd, args[0]); err != nil {
				os.Exit(1)
			}
		},
	}
}

func runBatch(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		output.PrintError(err.Error())
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		output.PrintError(fmt.Sprintf("Error reading YAML file: %v", err))
		return err
	}
	var entries []BatchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		output.PrintError(fmt.Sprintf("Error parsing YAML file: %v", err))
		return err
	}
	jobs, err := buildJobsFromBatch(cfg, entries)
	if err != nil {
		output.PrintError(err.Error())
		return err
	}
	if len(jobs) == 0 {
		output.PrintError("No valid galleries found in the batch file")
		return utils.ErrNoGalleries
	}
	return runJobs(jobs, cfg.GalleryBase)
}

func buildJobsFromBatch(base config.Config, entries []BatchEntry) ([]utils.GalleryJob, error) {
	var jobs []utils.GalleryJob
	for i, entry := range entries {
		if entry.URL == "" {
			output.PrintWarning(fmt.Sprintf("Entry %d has no url, skipping", i+1))
			continue
		}
		cfg := base
		if entry.Output != "" {
			cfg.Output = entry.Output
		}
		if entry.Filename != "" {
			cfg.Filename = entry.Filename
		}
		if entry.Archive != "" {
			cfg.Archive = entry.Archive
		}
		if len(entry.Pages) != 0 {
			if len(entry.Pages) != 2 {
				return nil, fmt.Errorf("entry %d: pages needs 2 values, got %d", i+1, len(entry.Pages))
			}
			cfg.Pages = [2]int{entry.Pages[0], entry.Pages[1]}
		}
		if entry.Threads != 0 {
			cfg.Threads = entry.Threads
		}
		if entry.Metadata != nil {
			cfg.Metadata = *entry.Metadata
		}
		if entry.Upload != "" {
			cfg.Upload = entry.Upload
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		jobs = append(jobs, newJob(cfg, entry.URL))
	}
	return jobs, nil
}
