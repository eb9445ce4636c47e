package apply

import (
	"bytes"
	"io"

	"pfw/criterion"
	"pfw/domain"
	"pfw/internal/pferrors"
)

// readWriteAdapter lets a lone io.Reader or io.Writer satisfy
// AreaConfiguration.Serialize's io.ReadWriter parameter; whichever half
// is left nil is never invoked by the direction Serialize is called
// with.
type readWriteAdapter struct {
	io.Reader
	io.Writer
}

func areaWalk(domains []*domain.ConfigurableDomain, visit func(*domain.AreaConfiguration) error) error {
	for _, d := range domains {
		for _, cfg := range d.Configurations() {
			for _, id := range cfg.Elements() {
				area, ok := cfg.Area(id)
				if !ok {
					return pferrors.ForKind(pferrors.InvariantViolation, "configuration %q missing area for associated element", cfg.Name)
				}
				if err := visit(area); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ExportSettings writes the binary settings file (spec.md §6 "Binary
// settings file"): the byte image of every area, in domain →
// configuration → area declaration order, followed by one checksum byte
// binding the data to the current structure.
func ExportSettings(systemClassName string, domains []*domain.ConfigurableDomain, criteria []*criterion.Criterion, w io.Writer) error {
	var data bytes.Buffer
	adapter := readWriteAdapter{Writer: &data}
	if err := areaWalk(domains, func(a *domain.AreaConfiguration) error {
		return a.Serialize(adapter, true)
	}); err != nil {
		return err
	}

	checksum := combineChecksum(StructureChecksum(systemClassName, domains, criteria), data.Bytes())
	if _, err := w.Write(data.Bytes()); err != nil {
		return pferrors.Wrap(err, "writing settings data")
	}
	if _, err := w.Write([]byte{checksum}); err != nil {
		return pferrors.Wrap(err, "writing settings checksum")
	}
	return nil
}

// ImportSettings reads a binary settings file produced by ExportSettings
// and restores every area's bytes in place, marking each valid. The
// expected data size is derived from the current live structure (the
// file carries no separate size field); any size or checksum mismatch
// rejects the file without touching any area (spec.md §6, §7
// IntegrityError).
func ImportSettings(systemClassName string, domains []*domain.ConfigurableDomain, criteria []*criterion.Criterion, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return pferrors.Wrap(err, "reading settings file")
	}
	if len(raw) == 0 {
		return pferrors.ForKind(pferrors.IntegrityError, "settings file is empty")
	}
	data, gotChecksum := raw[:len(raw)-1], raw[len(raw)-1]

	wantSize := 0
	if err := areaWalk(domains, func(a *domain.AreaConfiguration) error {
		wantSize += len(a.Bytes())
		return nil
	}); err != nil {
		return err
	}
	if len(data) != wantSize {
		return pferrors.ForKind(pferrors.IntegrityError, "settings data size %d does not match structure's expected %d", len(data), wantSize)
	}

	wantChecksum := combineChecksum(StructureChecksum(systemClassName, domains, criteria), data)
	if wantChecksum != gotChecksum {
		return pferrors.ForKind(pferrors.IntegrityError, "settings checksum %#x does not match expected %#x", gotChecksum, wantChecksum)
	}

	reader := bytes.NewReader(data)
	adapter := readWriteAdapter{Reader: reader}
	return areaWalk(domains, func(a *domain.AreaConfiguration) error {
		return a.Serialize(adapter, false)
	})
}
