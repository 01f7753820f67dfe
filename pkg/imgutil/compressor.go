package imgutil

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CompressToJPEG は画像データ（PNG, GIF, JPEG, BMP, TIFF）をサイズを変えずに JPEG 形式に圧縮します。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	return FitToJPEG(data, 0, quality)
}

// FitToJPEG は画像を maxDim x maxDim に収まるよう縮小してから JPEG に再エンコードします。
// maxDim が 0 以下の場合は縮小しません。元画像が小さい場合も拡大はしません。
func FitToJPEG(data []byte, maxDim, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("画像のデコードに失敗しました: %w", err)
	}

	if maxDim > 0 && exceeds(img, maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("JPEG エンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

func exceeds(img image.Image, maxDim int) bool {
	b := img.Bounds()
	return b.Dx() > maxDim || b.Dy() > maxDim
}
