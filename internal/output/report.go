package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/paycore/payroll-engine/internal/domain"
)

// GenerateReport writes results in the named format to a timestamped file in dir and
// returns the file name. "all" writes the verbose console stub and the detailed CSV.
func GenerateReport(results []*domain.PaycheckResult, format, dir string) ([]string, error) {
	if NormalizeFormatName(format) == "all" {
		var files []string
		for _, name := range []string{"console", "detailed-csv"} {
			file, err := WriteFormatted(GetFormatterByName(name), results, dir, Extension(name))
			if err != nil {
				return files, err
			}
			files = append(files, file)
		}
		return files, nil
	}
	f, err := lookup(format)
	if err != nil {
		return nil, err
	}
	file, err := WriteFormatted(f, results, dir, Extension(format))
	if err != nil {
		return nil, err
	}
	return []string{file}, nil
}

// Render writes results in the named format to w.
func Render(w io.Writer, results []*domain.PaycheckResult, format string) error {
	f, err := lookup(format)
	if err != nil {
		return err
	}
	data, err := f.Format(results)
	if err != nil {
		return fmt.Errorf("format %s: %w", f.Name(), err)
	}
	_, err = w.Write(data)
	return err
}

func lookup(format string) (Formatter, error) {
	if f := GetFormatterByName(format); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, format,
		strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
}
