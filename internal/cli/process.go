package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lohnkonto/lohnkonto-client/internal/api"
	"github.com/lohnkonto/lohnkonto-client/internal/events"
	inthttp "github.com/lohnkonto/lohnkonto-client/internal/http"
	"github.com/lohnkonto/lohnkonto-client/internal/notify"
	"github.com/lohnkonto/lohnkonto-client/internal/progress"
	"github.com/lohnkonto/lohnkonto-client/internal/sink"
	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
	"github.com/lohnkonto/lohnkonto-client/internal/validation"
)

type processOptions struct {
	password  string
	output    string
	overwrite bool
	notify    bool
	force     bool
	progress  string
	json      bool
}

// newProcessCmd creates the 'process' command.
func newProcessCmd() *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:     "process FILE",
		Aliases: []string{"convert"},
		Short:   "Upload a payroll PDF and save the resulting spreadsheet",
		Long: `Upload a payroll account PDF to the processing service, wait for the
spreadsheet it produces and save it.

The result is saved under the name suggested by the service. Existing
files are kept and the new result gets a numbered suffix unless
--overwrite is given. The destination can be a local directory, an S3
bucket (s3://bucket/prefix) or an Azure container (azblob://container/prefix).

Examples:
  lohnkonto process lohnkonto-2024.pdf
  lohnkonto process scan.pdf -o ~/Documents/payroll --overwrite
  lohnkonto process scan.pdf -o s3://payroll-exports/2024 --progress plain
  lohnkonto process locked.pdf --password secret --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(GetContext(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.password, "password", "", "Password of an encrypted PDF")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Destination directory or s3://, azblob:// URL (default: current directory)")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace an existing result file")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "Show a desktop notification when done")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Upload even if the file does not look like a PDF")
	cmd.Flags().StringVar(&opts.progress, "progress", string(progress.StyleAuto), "Progress display: auto, bars, simple, plain, json, none")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print transfer events as JSON lines (same as --progress json)")

	return cmd
}

func runProcess(ctx context.Context, path string, opts *processOptions) error {
	log := GetLogger()

	style, err := progress.ParseStyle(opts.progress)
	if err != nil {
		return err
	}
	if opts.json {
		style = progress.StyleJSON
	}

	if !opts.force {
		if err := validation.ValidateDocument(path); err != nil {
			return fmt.Errorf("%w (use --force to upload anyway)", err)
		}
	}

	cfg, err := loadConfig(opts.output)
	if err != nil {
		return err
	}
	if opts.overwrite {
		cfg.Overwrite = true
	}
	if opts.notify {
		cfg.Notify = true
	}

	httpClient, err := inthttp.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	dest, err := sink.Open(ctx, cfg.OutputDestination, cfg, httpClient, log)
	if err != nil {
		return fmt.Errorf("invalid output destination: %w", err)
	}

	bus := events.NewEventBus(0)
	defer bus.Close()

	renderer := progress.New(style)
	prevOutput := log.Output()
	switch r := renderer.(type) {
	case *progress.TransferUI:
		log.SetOutput(r.Writer())
	case *progress.JSONLines:
		log.SetOutput(os.Stderr)
	}
	defer log.SetOutput(prevOutput)

	stopRender := progress.Follow(bus, renderer)
	stopNotify := func() {}
	if cfg.Notify {
		stopNotify = progress.Follow(bus, notify.NewNotifier(nil, log))
	}

	ctrl := transfer.NewController(transfer.Options{
		Transport: api.NewTransport(cfg.APIBaseURL, httpClient, log),
		Download:  sink.DownloadFunc(dest),
		EventBus:  bus,
		Logger:    log,
	})
	defer func() {
		ctrl.Reset()
		stopRender()
		stopNotify()
		renderer.Close()
	}()

	password := opts.password
	prompted := false
	for {
		file, err := transfer.OpenFile(path)
		if err != nil {
			return err
		}
		file.Password = password

		err = runAttempt(ctx, bus, ctrl, file)
		if err == nil {
			return nil
		}

		if !prompted && password == "" && transfer.IsPasswordRequired(err) && style != progress.StyleJSON && stdinIsTerminal() {
			prompted = true
			pw, perr := promptSecret(fmt.Sprintf("%s is password protected. Password: ", file.Name))
			if perr != nil || pw == "" {
				return err
			}
			password = pw
			continue
		}
		return err
	}
}

// runAttempt uploads file and saves the result. It returns once the result
// is saved or the attempt has failed.
func runAttempt(ctx context.Context, bus *events.EventBus, ctrl *transfer.Controller, file *transfer.File) error {
	completed := bus.Subscribe(events.EventTransferCompleted)
	failed := bus.Subscribe(events.EventTransferFailed)
	defer bus.Unsubscribe(events.EventTransferCompleted, completed)
	defer bus.Unsubscribe(events.EventTransferFailed, failed)

	ctrl.AcceptFile(file)

	select {
	case <-completed:
		return ctrl.Download(ctx)
	case e := <-failed:
		if ev, ok := e.(*events.TransferEvent); ok && ev.Error != nil {
			return ev.Error
		}
		return errors.New("transfer failed")
	case <-ctx.Done():
		ctrl.Reset()
		return fmt.Errorf("cancelled: %w", ctx.Err())
	}
}
