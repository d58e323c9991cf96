package conflict

import (
	"crypto/md5"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// computeMD5 calculates MD5 hash of a file
func computeMD5(fs afero.Fs, filePath string) (string, error) {
	file, err := fs.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
