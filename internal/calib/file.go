package calib

import (
	"encoding/json"
	"fmt"
	"os"
)

// calibFile mirrors the persisted calibration layout: the 3x3 intrinsic
// matrix under "calib" and the distortion vector under "dist".
type calibFile struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Calib  [][]float64  `json:"calib"`
	Dist   []float64    `json:"dist"`
}

// LoadFile reads a calibration file and builds a CameraModel from it.
// Unlike FromIntrinsics, file-sourced calibrations are validated: a
// malformed intrinsic layout here means a bad calibration run, and silently
// producing wrong geometry from it helps nobody.
func LoadFile(path string) (*CameraModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}

	var cf calibFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse calibration %s: %w", path, err)
	}

	if len(cf.Calib) != 3 || len(cf.Calib[0]) != 3 || len(cf.Calib[1]) != 3 || len(cf.Calib[2]) != 3 {
		return nil, fmt.Errorf("calibration %s: calib must be a 3x3 matrix", path)
	}
	if len(cf.Dist) < 4 {
		return nil, fmt.Errorf("calibration %s: dist needs at least 4 coefficients, got %d", path, len(cf.Dist))
	}
	if cf.Width <= 0 || cf.Height <= 0 {
		return nil, fmt.Errorf("calibration %s: invalid image size %dx%d", path, cf.Width, cf.Height)
	}

	var k [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			k[i][j] = cf.Calib[i][j]
		}
	}

	fx, fy := k[0][0], k[1][1]
	cx, cy := k[0][2], k[1][2]
	if fx <= 0 || fy <= 0 {
		return nil, fmt.Errorf("calibration %s: non-positive focal length (fx=%g fy=%g)", path, fx, fy)
	}
	if cx < 0 || cx >= float64(cf.Width) || cy < 0 || cy >= float64(cf.Height) {
		return nil, fmt.Errorf("calibration %s: principal point (%g, %g) outside image bounds", path, cx, cy)
	}

	return FromIntrinsics(k, cf.Dist, cf.Width, cf.Height), nil
}
