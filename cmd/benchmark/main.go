package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfimages-golang"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: benchmark <pdf-file>")
		os.Exit(1)
	}

	pdfPath := os.Args[1]

	// Warm-up run
	doc, err := pdfimages.Open(pdfPath)
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	doc.Close()

	// Benchmark PDF opening
	start := time.Now()
	doc, err = pdfimages.Open(pdfPath)
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	openTime := time.Since(start)
	defer doc.Close()

	fmt.Printf("=== pdfimages Benchmark ===\n")
	fmt.Printf("File: %s\n", pdfPath)
	fmt.Printf("Pages: %d\n", doc.PageCount())
	fmt.Printf("Open time: %v\n", openTime)

	outDir, err := os.MkdirTemp("", "pdfimages-bench")
	if err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}
	defer os.RemoveAll(outDir)

	quiet := logrus.New()
	quiet.SetLevel(logrus.ErrorLevel)

	// Benchmark image extraction
	start = time.Now()
	report, err := pdfimages.ExtractDocument(context.Background(), doc, pdfPath,
		pdfimages.WithOutputDir(outDir), pdfimages.WithPrefix("bench"), pdfimages.WithLogger(quiet))
	if err != nil {
		log.Fatalf("Failed to extract images: %v", err)
	}
	extractTime := time.Since(start)

	var totalBytes int
	for _, f := range report.Files {
		totalBytes += f.Size
	}

	fmt.Printf("Extraction time: %v\n", extractTime)
	fmt.Printf("Images written: %d (%d failed)\n", len(report.Files), len(report.Failures))
	fmt.Printf("Bytes written: %d\n", totalBytes)
	fmt.Printf("Images/sec: %.0f\n", float64(len(report.Files))/extractTime.Seconds())

	// Summary
	totalTime := openTime + extractTime
	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Total processing time: %v\n", totalTime)
	fmt.Printf("Pages/sec: %.2f\n", float64(doc.PageCount())/totalTime.Seconds())
}
