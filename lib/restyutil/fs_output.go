package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// FilesystemOutput dumps every response body a client receives into a
// directory, one file per request. Used for debugging selector profiles
// against portals whose markup keeps shifting.
type FilesystemOutput struct {
	directory string
	idcounter *uint64
}

func NewFilesystemOutput(dir string) (*FilesystemOutput, error) {
	os.RemoveAll(dir)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, err
	}
	var idcounter uint64
	return &FilesystemOutput{directory: dir, idcounter: &idcounter}, nil
}

// Attach registers an after-response hook that writes the body of every
// response to the output directory.
func (o *FilesystemOutput) Attach(client *resty.Client) {
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := strconv.FormatUint(atomic.AddUint64(o.idcounter, 1), 10)
		name := id + "_" + sanitizeURL(res.Request.URL) + ".html"
		err := os.WriteFile(filepath.Join(o.directory, name), res.Body(), 0o600)
		if err != nil {
			slog.Warn("failed to write debug page dump", "id", id, "err", err)
		}
		return nil
	})
}

func sanitizeURL(u string) string {
	out := make([]rune, 0, len(u))
	for _, c := range u {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
		if len(out) >= 80 {
			break
		}
	}
	return string(out)
}
