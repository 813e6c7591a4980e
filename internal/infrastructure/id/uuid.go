package id

import "github.com/google/uuid"

// UUIDGenerator issues random (v4) identifiers.
type UUIDGenerator struct{}

func New() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }
