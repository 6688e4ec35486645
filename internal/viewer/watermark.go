package viewer

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ownerPassword locks the protection settings, not the document itself; the
// user password stays empty so the viewer can always open the bytes.
const ownerPassword = "bamboo-reports-managed"

func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// stampWatermark draws the viewing user's identity diagonally across every
// page. The mark scales with the page, so zooming or resizing cannot crop
// it out.
func stampWatermark(doc []byte, identity string) ([]byte, error) {
	desc := "fontname:Helvetica, points:24, scalefactor:0.6 rel, rotation:45, opacity:0.25, fillcolor:#4b4b4b"
	wm, err := api.TextWatermark(identity, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build watermark: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(doc), &out, nil, wm, relaxedConf()); err != nil {
		return nil, fmt.Errorf("apply watermark: %w", err)
	}
	return out.Bytes(), nil
}

// restrictPermissions encrypts the document with an empty user password and
// no granted permissions, withholding copy and print from readers that honor
// them. This is friction, not a security boundary.
func restrictPermissions(doc []byte) ([]byte, error) {
	conf := relaxedConf()
	conf.UserPW = ""
	conf.OwnerPW = ownerPassword
	conf.Permissions = model.PermissionsNone

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(doc), &out, conf); err != nil {
		return nil, fmt.Errorf("restrict permissions: %w", err)
	}
	return out.Bytes(), nil
}
