package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"imgcap/pkg/ocr"
)

func main() {
	f := flag.String("file", "", "image file to OCR")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	txt, err := ocr.ExtractText(*f)
	if errors.Is(err, ocr.ErrNoText) {
		fmt.Println("no legible text")
		return
	}
	if err != nil {
		log.Fatalf("ocr error: %v", err)
	}
	fmt.Printf("pass=%s conf=%.2f text=%q\n", txt.Pass, txt.Confidence, txt.Content)
}
