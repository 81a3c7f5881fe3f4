package adapter

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"

	"github.com/klauspost/compress/zstd"
	"gooze.dev/pkg/bytemut/internal/bytecode"
	m "gooze.dev/pkg/bytemut/internal/model"
)

const (
	// ModuleExt is the extension of module containers.
	ModuleExt = ".bmod"
	// SymbolsExt is the extension of symbol files.
	SymbolsExt = ".bsym"

	containerMagic   = "BMOD"
	containerVersion = byte(1)
)

// EncodeModule verifies mod and writes it as a container: magic, version and a
// zstd-compressed gob payload.
func EncodeModule(w io.Writer, mod *m.Module) error {
	if err := bytecode.Verify(mod); err != nil {
		return fmt.Errorf("%w: %w", m.ErrSerialization, err)
	}

	if _, err := io.WriteString(w, containerMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if _, err := w.Write([]byte{containerVersion}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create compressor: %w", err)
	}

	if err := gob.NewEncoder(enc).Encode(mod); err != nil {
		_ = enc.Close()
		return fmt.Errorf("%w: encode module %s: %w", m.ErrSerialization, mod.Name, err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush compressor: %w", err)
	}

	return nil
}

// DecodeModule reads a container and verifies the module inside it.
func DecodeModule(r io.Reader) (*m.Module, error) {
	br := bufio.NewReader(r)

	header := make([]byte, len(containerMagic)+1)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: short header", m.ErrInvalidModuleFormat)
	}

	if string(header[:len(containerMagic)]) != containerMagic {
		return nil, fmt.Errorf("%w: bad magic", m.ErrInvalidModuleFormat)
	}

	if header[len(containerMagic)] != containerVersion {
		return nil, fmt.Errorf("%w: unsupported container version %d", m.ErrInvalidModuleFormat, header[len(containerMagic)])
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", m.ErrInvalidModuleFormat, err)
	}
	defer dec.Close()

	var mod m.Module
	if err := gob.NewDecoder(dec).Decode(&mod); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %w", m.ErrInvalidModuleFormat, err)
	}

	if err := bytecode.Verify(&mod); err != nil {
		slog.Warn("Module failed verification", "module", mod.Name, "error", err)
		return nil, fmt.Errorf("%w: %w", m.ErrInvalidModuleFormat, err)
	}

	return &mod, nil
}

// Digest returns a content hash of the module graph.
func Digest(mod *m.Module) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(mod); err != nil {
		return "", fmt.Errorf("encode module: %w", err)
	}

	return fmt.Sprintf("%x", sha256.Sum256(buf.Bytes())), nil
}
