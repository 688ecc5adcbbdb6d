// certgen is a command-line tool for generating one certificate per dataset row
// from a PDF template, bundled into a single ZIP archive.
//
// Each row of the dataset (CSV or XLSX, first row is the header) becomes one PDF.
// Text and image fields are placed on a copy of the template's first page according
// to a layout file; without one, a name and an hours placeholder are used and bound to
// matching columns automatically.
//
// Usage:
//
//	certgen -template template.pdf -data students.xlsx [options]
//
// Required flags:
//
//	-template string  Path to the PDF template (first page is used)
//	-data string      Path to the dataset (.csv or .xlsx)
//
// Options:
//
//	-layout string    YAML or JSON field layout (default: name and hours placeholders)
//	-output string    Output ZIP path (default "certificates_bundle.zip")
//	-config string    YAML configuration file (logging, generation, storage)
//	-workers int      Rows rendered concurrently (overrides the config file)
//	-no-autobind      Do not bind placeholder fields to matching columns
//	-overwrite        Overwrite the output file if it exists
//	-upload           Upload the bundle to the configured bucket
//	-debug            Enable debug logging
//
// Examples:
//
// Generate with the default placeholders:
//
//	certgen -template diploma.pdf -data alumnos.xlsx
//
// Generate from a saved layout and publish the bundle:
//
//	certgen -template diploma.pdf -data alumnos.csv -layout layout.yml -config config.yml -upload
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/Alexmavl/Generador-Certificados/pkg/archive"
	"github.com/Alexmavl/Generador-Certificados/pkg/certgen"
	"github.com/Alexmavl/Generador-Certificados/pkg/dataset"
	"github.com/Alexmavl/Generador-Certificados/pkg/layout"
	"github.com/Alexmavl/Generador-Certificados/pkg/objstore"
)

func main() {
	templatePath := flag.String("template", "", "Path to the PDF template")
	dataPath := flag.String("data", "", "Path to the CSV or XLSX dataset")
	layoutPath := flag.String("layout", "", "Path to a YAML or JSON field layout")
	outputPath := flag.String("output", "certificates_bundle.zip", "Output ZIP path")
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	workers := flag.Int("workers", 0, "Rows rendered concurrently (0 = use config)")
	noAutoBind := flag.Bool("no-autobind", false, "Do not bind placeholder fields to matching columns")
	overwriteOutput := flag.Bool("overwrite", false, "Overwrite the output file if it already exists")
	upload := flag.Bool("upload", false, "Upload the bundle to the configured bucket")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *templatePath == "" || *dataPath == "" {
		fmt.Println("Error: Must provide -template and -data paths")
		os.Exit(1)
	}

	yc, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := yc.newLogger(*debug)
	if err != nil {
		fmt.Printf("Invalid log settings: %v\n", err)
		os.Exit(1)
	}

	if _, err := os.Stat(*outputPath); err == nil {
		if !*overwriteOutput {
			fmt.Printf("Output file %s already exists. Use -overwrite to overwrite.\n", *outputPath)
			os.Exit(1)
		}
	}

	var uploader *objstore.Uploader
	if *upload {
		uploader, err = objstore.New(yc.Storage, logger)
		if err != nil {
			logger.WithError(err).Fatal("object storage is not configured")
		}
	}

	template, err := os.ReadFile(*templatePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to read template")
	}
	if _, err := certgen.InspectTemplate(template); err != nil {
		logger.WithError(err).Fatal("unusable template")
	}

	ds, err := dataset.Load(*dataPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to read dataset")
	}
	logger.WithFields(logrus.Fields{"rows": len(ds.Rows), "columns": ds.Columns}).Info("dataset loaded")

	fields := layout.DefaultFields()
	if *layoutPath != "" {
		fields, err = layout.Load(*layoutPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to read layout")
		}
	}
	if !*noAutoBind {
		fields = layout.AutoBind(fields, ds.Columns)
	}

	config := yc.generatorConfig()
	if *workers > 0 {
		config.Workers = *workers
	}
	config.Logger = logger
	config.OnProgress = func(percent float64) {
		fmt.Printf("\rGenerating certificates... %3.0f%%", percent)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := writeBundle(ctx, *outputPath, certgen.Job{Template: template, Fields: fields, Rows: ds.Rows}, config)
	if len(ds.Rows) > 0 {
		fmt.Println()
	}
	if err != nil {
		if result == nil || !errors.Is(err, context.Canceled) {
			logger.WithError(err).Fatal("certificate generation failed")
		}
		logger.WithError(err).Warn("generation interrupted, bundle contains the rows completed so far")
	}

	for _, d := range result.Diagnostics {
		fmt.Println("Skipped:", d)
	}
	fmt.Printf("✅ %s: %s\n", result.Summary(), *outputPath)

	if uploader != nil && ctx.Err() != nil {
		logger.Warn("upload skipped after interrupt")
	} else if uploader != nil {
		key, err := uploadBundle(ctx, uploader, result.RunID, *outputPath)
		if err != nil {
			logger.WithError(err).Fatal("upload failed")
		}
		fmt.Println("Uploaded bundle:", key)
	}
}

// writeBundle streams the archive into a temporary file next to path and
// moves it into place once the run has produced a result. A failed run leaves
// any existing file at path untouched.
func writeBundle(ctx context.Context, path string, job certgen.Job, config certgen.Config) (*certgen.Result, error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".certgen-*.zip")
	if err != nil {
		return nil, err
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	defer f.Close()

	result, genErr := certgen.GenerateTo(ctx, job, archive.NewZipStream(f), config)
	if result == nil {
		return nil, genErr
	}
	if err := f.Chmod(0o644); err != nil {
		return nil, err
	}
	if err := f.Sync(); err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("failed to move bundle into place: %w", err)
	}
	return result, genErr
}

func uploadBundle(ctx context.Context, uploader *objstore.Uploader, runID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	return uploader.Upload(ctx, runID, path, f, stat.Size())
}
