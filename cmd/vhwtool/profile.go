// cmd/vhwtool/profile.go
package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"simboard-go/devices"
	"simboard-go/types"
	"simboard-go/vhw"
)

func loadProfile(path string) (types.BoardProfile, error) {
	var p types.BoardProfile
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "reading board profile")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, errors.Wrapf(err, "parsing board profile %s", path)
	}
	return p, nil
}

func buildBoard(profilePath string) (*vhw.Board, error) {
	p, err := loadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	b := vhw.NewBoard(vhw.Config{Profile: p})
	for _, dc := range p.Devices {
		if err := devices.Attach(b, dc); err != nil {
			return nil, errors.Wrapf(err, "attaching device %q", dc.ID)
		}
	}
	return b, nil
}
