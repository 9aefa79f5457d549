//go:build !unix

package preflight

import (
	"errors"
	"io"
	"os"
)

func checkAccess(path string, writable bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	_, err = f.Readdirnames(1)
	f.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if !writable {
		return nil
	}
	probe, err := os.CreateTemp(path, ".recwatch-probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
