/*
Copyright © 2026 the popcover authors.
This file is part of popcover.

popcover is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

popcover is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with popcover.  If not, see <http://www.gnu.org/licenses/>.
*/


package popcoverutil

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/popcover"
	"github.com/spatialmodel/popcover/cloud"
)

// Convert creates a population count store using the Convert.* and
// Store options of cfg. Inputs may be downloaded from, and the store
// uploaded to, remote locations.
func Convert(ctx context.Context, cfg *Cfg, log logrus.FieldLogger) (*popcover.Metadata, error) {
	c, err := convertConfig(cfg)
	if err != nil {
		return nil, err
	}
	densitySrc, landSrc := c.DensityFile, c.LandShapefile
	var d cloud.Downloader
	defer d.Cleanup()
	if c.DensityFile, err = d.MaybeDownload(ctx, c.DensityFile); err != nil {
		return nil, err
	}
	if c.LandShapefile, err = d.MaybeDownload(ctx, c.LandShapefile); err != nil {
		return nil, err
	}
	var u cloud.Uploader
	defer u.Cleanup()
	if c.Output, err = u.MaybeUpload(c.Output); err != nil {
		return nil, err
	}

	conv := popcover.NewConversion(ctx, c, log)
	// Record the original locations rather than the downloaded copies.
	save := conv.Steps[len(conv.Steps)-1]
	conv.Steps = append(conv.Steps[:len(conv.Steps)-1], func(cv *popcover.Conversion) error {
		cv.Metadata.RasterSource = densitySrc
		cv.Metadata.LandMaskSource = landSrc
		return nil
	}, save)
	if err = conv.Run(); err != nil {
		return nil, err
	}
	if err = u.Upload(ctx); err != nil {
		return nil, err
	}
	return conv.Metadata, nil
}
