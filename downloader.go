package wavekit

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gomlx/go-huggingface/hub"

	"github.com/wavekit-ai/wavekit/util/fileutil"
)

// DownloadOptions is a struct of options that can be passed to
// DownloadPipeline.
type DownloadOptions struct {
	AuthToken     string
	Branch        string
	MaxRetries    int
	RetryInterval int
	Verbose       bool
}

// NewDownloadOptions creates new DownloadOptions struct with default
// values. Override the values to specify different download options.
func NewDownloadOptions() DownloadOptions {
	d := DownloadOptions{}
	d.Branch = "main"
	d.MaxRetries = 5
	d.RetryInterval = 5
	return d
}

// DownloadPipeline fetches a pretrained pipeline repository from the
// hub into destination. Before anything is downloaded the repository is
// validated to contain a config.yaml checkpoint descriptor. The local
// path of the downloaded descriptor is returned and can be passed
// straight to FromPretrained.
func DownloadPipeline(repoID string, destination string, options DownloadOptions) (string, error) {
	pipelinePath := path.Join(destination, strings.ReplaceAll(repoID, "/", "_"))

	repo := hub.New(repoID)
	if options.AuthToken != "" {
		repo = repo.WithAuth(options.AuthToken)
	}
	if options.Verbose {
		repo.Verbosity = 1
		repo.WithProgressBar(true)
	} else {
		repo.Verbosity = 0
		repo.WithProgressBar(false)
	}
	if options.Branch != "" {
		repo.WithRevision(options.Branch)
	}

	downloadFiles, err := validateDownloadHubPipeline(repo, options)
	if err != nil {
		return "", err
	}

	for i := 0; i < options.MaxRetries; i++ {
		downloadPaths, downloadErr := repo.DownloadFiles(downloadFiles...)
		if downloadErr != nil {
			if options.Verbose {
				fmt.Printf("Warning: attempt %d / %d failed, error: %s\n", i+1, options.MaxRetries, downloadErr)
			}
			time.Sleep(time.Duration(options.RetryInterval) * time.Second)
			continue
		}

		for j, downloadPath := range downloadPaths {
			truePath, symErr := filepath.EvalSymlinks(downloadPath)
			if symErr != nil {
				return "", symErr
			}
			copyErr := fileutil.CopyFile(context.Background(), truePath, fmt.Sprintf("%s/%s", pipelinePath, downloadFiles[j]))
			if copyErr != nil {
				return "", copyErr
			}
		}

		if options.Verbose {
			fmt.Printf("\nDownload of %s completed successfully\n", repoID)
		}
		return path.Join(pipelinePath, PipelineConfigName), nil
	}

	return "", fmt.Errorf("failed to download %s after %d attempts", repoID, options.MaxRetries)
}

// validateDownloadHubPipeline lists the repository and selects the files
// worth fetching: the checkpoint descriptor, model weights and their
// side metadata.
func validateDownloadHubPipeline(repo *hub.Repo, options DownloadOptions) ([]string, error) {
	for i := 0; i < options.MaxRetries; i++ {
		err := repo.DownloadInfo(false)
		if err == nil {
			break
		}
		if options.Verbose {
			fmt.Printf("Warning: list repo attempt %d / %d failed, error: %s\n", i+1, options.MaxRetries, err)
		}
		if i+1 == options.MaxRetries {
			return nil, err
		}
		time.Sleep(time.Duration(options.RetryInterval) * time.Second)
	}

	configPath := ""
	var toDownload []string
	for fileName, err := range repo.IterFileNames() {
		if err != nil {
			return nil, err
		}
		baseFileName := filepath.Base(fileName)
		switch {
		case baseFileName == PipelineConfigName:
			if configPath == "" {
				configPath = fileName
			}
		case baseFileName == "config.json" || baseFileName == "database.yml":
			toDownload = append(toDownload, fileName)
		case filepath.Ext(baseFileName) == ".onnx":
			toDownload = append(toDownload, fileName)
		}
	}

	if configPath == "" {
		return nil, errors.New("repository does not contain a config.yaml checkpoint descriptor")
	}
	return append([]string{configPath}, toDownload...), nil
}
