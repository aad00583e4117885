//go:build !unix

package machine

func allocRAM(size uint64) ([]byte, bool, error) {
	return make([]byte, size), false, nil
}

func freeRAM(data []byte, mapped bool) error { return nil }
