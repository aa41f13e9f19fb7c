package ocr

import (
	"image"
	"log"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// runPass reads imagePath once with the given page segmentation mode.
func runPass(name, imagePath string, mode gosseract.PageSegMode) (passResult, error) {
	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	if err := client.SetPageSegMode(mode); err != nil {
		return passResult{}, err
	}
	if err := client.SetImage(imagePath); err != nil {
		return passResult{}, err
	}
	text, err := client.Text()
	if err != nil {
		return passResult{}, err
	}
	res := passResult{name: name, text: normalizeText(text)}
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		sum := 0.0
		for _, b := range boxes {
			sum += b.Confidence
		}
		res.conf = sum / float64(len(boxes))
	}
	return res, nil
}

// saveTemp writes img to a temporary PNG and returns its path; the caller removes it.
func saveTemp(img image.Image, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	_ = f.Close()
	if err := imaging.Save(img, name); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// runAllPasses reads the original image and two preprocessed variants under several modes.
func runAllPasses(path string) ([]passResult, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	gray := prepare(src, 900)
	adv := dilate(adaptiveThreshold(gray, 15, 7), 1)

	type job struct {
		name string
		img  image.Image // nil means the original file
		mode gosseract.PageSegMode
	}
	jobs := []job{
		{"original-auto", nil, gosseract.PSM_AUTO},
		{"original-sparse", nil, gosseract.PSM_SPARSE_TEXT},
		{"gray-auto", gray, gosseract.PSM_AUTO},
		{"gray-block", gray, gosseract.PSM_SINGLE_BLOCK},
		{"threshold-auto", adv, gosseract.PSM_AUTO},
	}

	var out []passResult
	for _, j := range jobs {
		target := path
		if j.img != nil {
			tmp, err := saveTemp(j.img, "ocr-"+j.name+"-*.png")
			if err != nil {
				log.Printf("WARN ocr temp %s: %v", j.name, err)
				continue
			}
			target = tmp
		}
		res, err := runPass(j.name, target, j.mode)
		if target != path {
			_ = os.Remove(target)
		}
		if err != nil {
			log.Printf("WARN ocr pass %s on %s: %v", j.name, path, err)
			continue
		}
		out = append(out, res)
	}
	return out, nil
}
