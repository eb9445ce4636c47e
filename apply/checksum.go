package apply

import (
	"hash/fnv"

	"pfw/criterion"
	"pfw/domain"
)

// StructureChecksum fingerprints a loaded structure (system class,
// configurable domains, criteria) so a binary settings file produced
// against one structure is rejected by a structurally different one
// (spec.md §6 "structure_checksum is derived from the loaded
// structure... stable across runs of the same structure").
//
// It folds an FNV-1a hash over: the system class name, then each
// domain's name and sequence-aware flag in declaration order, then each
// criterion's name, kind, and sorted value set.
func StructureChecksum(systemClassName string, domains []*domain.ConfigurableDomain, criteria []*criterion.Criterion) byte {
	h := fnv.New32a()
	write := func(s string) { h.Write([]byte(s)); h.Write([]byte{0}) }

	write(systemClassName)
	for _, d := range domains {
		write(d.Name)
		if d.SequenceAware {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}
	for _, c := range criteria {
		write(c.Name())
		h.Write([]byte{byte(c.Kind())})
		for _, p := range c.ValuePairs() {
			write(p.Literal)
			h.Write([]byte{
				byte(p.Numeric), byte(p.Numeric >> 8), byte(p.Numeric >> 16), byte(p.Numeric >> 24),
				byte(p.Numeric >> 32), byte(p.Numeric >> 40), byte(p.Numeric >> 48), byte(p.Numeric >> 56),
			})
		}
	}

	sum := h.Sum32()
	return byte(sum ^ (sum >> 8) ^ (sum >> 16) ^ (sum >> 24))
}

// combineChecksum folds the structure checksum and data bytes into the
// single trailing byte of a binary settings file: the unsigned 8-bit sum
// (mod 256) of structure_checksum plus every data byte (spec.md §6).
// uint8 addition in Go wraps automatically, giving the mod-256 behavior
// for free.
func combineChecksum(structureChecksum byte, data []byte) byte {
	sum := structureChecksum
	for _, b := range data {
		sum += b
	}
	return sum
}
