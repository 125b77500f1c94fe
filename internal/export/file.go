package export

import (
	"fmt"
	"io"
	"os"
)

func writeFile(path, format string, write func(Exporter, io.Writer) error) (err error) {
	e, err := New(format)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return write(e, f)
}
