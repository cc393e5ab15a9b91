package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/wavekit-ai/wavekit"
	"github.com/wavekit-ai/wavekit/options"
	"github.com/wavekit-ai/wavekit/pipelines"
	"github.com/wavekit-ai/wavekit/util/fileutil"
)

var checkpointPath string
var hparamsPath string
var devicePath string
var inputPath string
var outputPath string
var repoID string
var destinationDir string
var authToken string
var branch string

type input struct {
	Audio string `json:"audio"`
}

type output struct {
	URI    string `json:"uri"`
	Output any    `json:"output"`
	Error  string `json:"error,omitempty"`
}

var applyCommand = &cli.Command{
	Name:  "apply",
	Usage: "Apply a pretrained pipeline to audio files",
	Description: `Apply loads a pipeline from a checkpoint descriptor and applies it to audio files.
				Inputs are read as .jsonl lines of the format {"audio": "/path/to/file.wav"}, either
				from the --input file or folder, or from stdin. Results are written as .jsonl to
				--output, or to stdout.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "checkpoint",
			Usage:       "Path to the checkpoint descriptor (config.yaml)",
			Aliases:     []string{"c"},
			Destination: &checkpointPath,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "hparams",
			Usage:       "Path to a hyperparameters file overriding the descriptor's parameters",
			Destination: &hparamsPath,
		},
		&cli.StringFlag{
			Name:        "device",
			Usage:       "Device identifier overriding the descriptor's device (e.g. cpu, cuda:0)",
			Aliases:     []string{"d"},
			Destination: &devicePath,
		},
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path to a .jsonl file or a folder with .jsonl files. If omitted, stdin is read.",
			Aliases:     []string{"i"},
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to a folder where to write results. If omitted, results go to stdout.",
			Aliases:     []string{"o"},
			Destination: &outputPath,
		},
	},
	Action: func(ctx *cli.Context) (err error) {
		var opts []options.WithOption
		if hparamsPath != "" {
			opts = append(opts, options.WithHParamsFile(hparamsPath))
		}
		if devicePath != "" {
			opts = append(opts, options.WithDevice(devicePath))
		}
		pipeline, err := wavekit.FromPretrained(checkpointPath, opts...)
		if err != nil {
			return err
		}

		var writer io.WriteCloser = os.Stdout
		if outputPath != "" {
			dest := fileutil.PathJoinSafe(outputPath, "result.jsonl")
			writer, err = fileutil.NewFileWriter(dest)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, writer.Close())
			}()
		}

		process := func(reader io.Reader) error {
			return applyToInputs(pipeline, reader, writer)
		}

		if inputPath != "" {
			exists, existsErr := fileutil.FileExists(inputPath)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				return fmt.Errorf("file %s does not exist", inputPath)
			}
			fileWalker := func(_ context.Context, _ string, _ string, info os.FileInfo, reader io.Reader) (bool, error) {
				if filepath.Ext(info.Name()) == ".jsonl" {
					if walkErr := process(reader); walkErr != nil {
						return false, walkErr
					}
				}
				return true, nil
			}
			return fileutil.WalkDir(ctx.Context, inputPath, fileWalker)
		}

		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return process(os.Stdin)
		}
		return errors.New("no input provided: pass --input or pipe .jsonl lines on stdin")
	},
}

func applyToInputs(pipeline pipelines.Pipeline, reader io.Reader, writer io.Writer) error {
	bufReader := bufio.NewReader(reader)
	for {
		line, readErr := fileutil.ReadLine(bufReader)
		if readErr != nil && readErr != io.EOF {
			return readErr
		}
		if len(line) > 0 {
			in := input{}
			if err := jsoniter.Unmarshal(line, &in); err != nil {
				return fmt.Errorf("cannot parse input line %q: %w", string(line), err)
			}
			out := output{URI: strings.TrimSuffix(filepath.Base(in.Audio), filepath.Ext(in.Audio))}
			result, applyErr := pipelines.Run(pipeline, in.Audio, nil)
			if applyErr != nil {
				out.Error = applyErr.Error()
			} else {
				out.Output = result
			}
			encoded, encodeErr := jsoniter.Marshal(out)
			if encodeErr != nil {
				return encodeErr
			}
			if _, writeErr := writer.Write(append(encoded, '\n')); writeErr != nil {
				return writeErr
			}
		}
		if readErr == io.EOF {
			return nil
		}
	}
}

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "Summarize a checkpoint descriptor without constructing the pipeline",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "checkpoint",
			Usage:       "Path to the checkpoint descriptor (config.yaml)",
			Aliases:     []string{"c"},
			Destination: &checkpointPath,
			Required:    true,
		},
	},
	Action: func(_ *cli.Context) error {
		raw, err := fileutil.ReadFileBytes(checkpointPath)
		if err != nil {
			return err
		}
		descriptor := map[string]any{}
		if err := yaml.Unmarshal(raw, &descriptor); err != nil {
			return fmt.Errorf("invalid checkpoint descriptor %s: %w", checkpointPath, err)
		}
		encoded, err := jsoniter.MarshalIndent(descriptor, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

var downloadCommand = &cli.Command{
	Name:  "download",
	Usage: "Download a pretrained pipeline repository from the hub",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Repository id of the pretrained pipeline",
			Aliases:     []string{"r"},
			Destination: &repoID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "destination",
			Usage:       "Folder where to store the downloaded pipeline. Falls back to $HOME/wavekit/pipelines.",
			Aliases:     []string{"f"},
			Destination: &destinationDir,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Hub authentication token for gated repositories",
			Destination: &authToken,
		},
		&cli.StringFlag{
			Name:        "branch",
			Usage:       "Repository branch to download",
			Destination: &branch,
			Value:       "main",
		},
	},
	Action: func(_ *cli.Context) error {
		if destinationDir == "" {
			userDir, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			destinationDir = fileutil.PathJoinSafe(userDir, "wavekit", "pipelines")
		}
		if err := fileutil.CreateDir(destinationDir); err != nil {
			return err
		}
		downloadOptions := wavekit.NewDownloadOptions()
		downloadOptions.AuthToken = authToken
		downloadOptions.Branch = branch
		downloadOptions.Verbose = true
		descriptorPath, err := wavekit.DownloadPipeline(repoID, destinationDir, downloadOptions)
		if err != nil {
			return err
		}
		fmt.Printf("Downloaded %s, checkpoint descriptor at %s\n", repoID, descriptorPath)
		return nil
	},
}

func main() {
	app := &cli.App{
		Name:     "wavekit",
		Usage:    "Load and apply pretrained audio pipelines",
		Commands: []*cli.Command{applyCommand, inspectCommand, downloadCommand},
	}
	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
