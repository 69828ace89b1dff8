// Package goshape provides:
//
// - A registry binding Go types to shapes (Value, Map, Array, Pointer)
// - Shape-driven serialization to any Printer and deserialization from any Parser
// - Field flattening so derived structs reuse the member list of their bases
// - Container, tuple and pointer adapters, derived automatically for slices, arrays, maps and pointers
// - A structural fingerprint for detecting layout changes
// - Exporters/Importers that plug a value into io.WriterTo/io.ReaderFrom
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations under internal/.
// - Wire formats live under format/, ready-made scalar shapes under codec/, and the CLI under cmd/goshape.
// - The engine never imports a format; formats only see Token, Printer and Parser.
//
// Typical usage:
//
//	reg := goshape.NewRegistry()
//	goshape.MustStruct(reg,
//	    goshape.F("id", func(u *User) *int64 { return &u.ID }),
//	    goshape.FieldOf(func(u *User) *string { return &u.Name }),
//	)
//	data, err := goshape.Marshal(reg, jsonfmt.Format{}, user)
//	err = goshape.Unmarshal(reg, jsonfmt.Format{}, data, &user)
package goshape
