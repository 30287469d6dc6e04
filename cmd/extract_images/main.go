package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfimages-golang"
)

func main() {
	var (
		configPath      = flag.String("config", "", "YAML config file")
		password        = flag.String("password", "", "user or owner password")
		prefix          = flag.String("prefix", "", "output file prefix (default: input path without extension)")
		outputDir       = flag.String("output-dir", "", "directory for output files")
		dpi             = flag.Int("dpi", 0, "resolution recorded in output files (default 72)")
		directJPEG      = flag.Bool("directJPEG", false, "write JPEG and JPEG 2000 streams unchanged")
		noColorConvert  = flag.Bool("noColorConvert", false, "keep samples in their own colour space")
		tiffCompression = flag.String("tiff-compression", "", "lzw or deflate for non-bitonal TIFF files")
		keepGoing       = flag.Bool("keep-going", false, "skip pages with malformed content")
		verbose         = flag.Bool("v", false, "log every written file")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: extract_images [flags] <pdf_file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	pdfPath := flag.Arg(0)

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)

	var opts []pdfimages.Option
	if *configPath != "" {
		conf, err := pdfimages.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.SetLevel(conf.Level(logrus.WarnLevel))
		opts = append(opts, conf.Options()...)
	}
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	// flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "password":
			opts = append(opts, pdfimages.WithPassword(*password))
		case "prefix":
			opts = append(opts, pdfimages.WithPrefix(*prefix))
		case "output-dir":
			opts = append(opts, pdfimages.WithOutputDir(*outputDir))
		case "dpi":
			opts = append(opts, pdfimages.WithDPI(*dpi))
		case "directJPEG":
			opts = append(opts, pdfimages.WithDirectJPEG(*directJPEG))
		case "noColorConvert":
			opts = append(opts, pdfimages.WithNoColorConvert(*noColorConvert))
		case "tiff-compression":
			opts = append(opts, pdfimages.WithTIFFCompression(pdfimages.TIFFCompression(*tiffCompression)))
		case "keep-going":
			opts = append(opts, pdfimages.WithContinueOnPageError(*keepGoing))
		}
	})
	opts = append(opts, pdfimages.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := pdfimages.Extract(ctx, pdfPath, opts...)
	if err != nil {
		log.Fatalf("Failed to extract images: %v", err)
	}

	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "page %d, image %d: %v\n", f.Page, f.Counter, f.Err)
	}
	for _, p := range report.SkippedPages {
		fmt.Fprintf(os.Stderr, "page %d skipped: %v\n", p.Page, p.Err)
	}
	fmt.Println(report.Summary())
}
