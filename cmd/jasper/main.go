// jasper demultiplexes long-read FASTQ input by approximate marker matching,
// classifying and routing each read to per-class gzip FASTQ output, with an
// optional "encrypt" subcommand for producing an encrypted pattern database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cherryamme/jasper/catalog"
	"github.com/cherryamme/jasper/internal/config"
	"github.com/cherryamme/jasper/pipeline"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s encrypt <file> [--db-passphrase <pass>]\n", os.Args[0])
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if len(os.Args) > 1 && os.Args[1] == "encrypt" {
		runEncrypt(os.Args[2:])
		return
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		usage()
		log.Fatalf("parse flags: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := vcontext.Background()
	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}
	log.Info.Printf("done")
}

func run(ctx context.Context, cfg *config.Config) error {
	catalogs := make([]*catalog.PatternCatalog, len(cfg.PatternFiles))
	for i, pairFile := range cfg.PatternFiles {
		cat, err := catalog.LoadCached(ctx, cfg.DB, pairFile, cfg.DBPassphrase, cfg.CacheDir)
		if err != nil {
			return err
		}
		catalogs[i] = cat
	}

	var fusionCatalog *catalog.FusionCatalog
	if cfg.FusionFile != "" {
		fc, err := catalog.LoadFusion(ctx, cfg.DB, cfg.DBPassphrase, cfg.FusionFile)
		if err != nil {
			return err
		}
		fusionCatalog = fc
	}

	opts := pipeline.Options{
		Inputs:         cfg.Inputs,
		Outdir:         cfg.Outdir,
		Threads:        cfg.Threads,
		Layers:         cfg.LayerConfigs(catalogs),
		Policies:       cfg.Policies(),
		WindowLeft:     cfg.WindowLeft,
		WindowRight:    cfg.WindowRight,
		ClassifyConfig: cfg.ClassifyConfig(fusionCatalog),
		IDSep:          cfg.IDSep,
		LogNum:         cfg.LogNum,
	}
	return pipeline.Run(ctx, opts)
}

func runEncrypt(args []string) {
	if len(args) == 0 {
		usage()
		log.Fatalf("encrypt: a file path is required")
	}
	path := args[0]
	passphrase := os.Getenv("JASPER_DB_PASSPHRASE")
	for i, a := range args {
		if a == "--db-passphrase" && i+1 < len(args) {
			passphrase = args[i+1]
		}
	}
	if passphrase == "" {
		log.Fatalf("encrypt: a passphrase is required (--db-passphrase or JASPER_DB_PASSPHRASE)")
	}
	outPath, err := catalog.EncryptFile(vcontext.Background(), path, passphrase)
	if err != nil {
		log.Fatalf("encrypt: %v", err)
	}
	log.Info.Printf("wrote %s", outPath)
}
