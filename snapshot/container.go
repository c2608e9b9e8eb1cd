package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"
)

const (
	MAGIC   = "NSPS" // Snapshot container magic.
	VERSION = 1      // Snapshot container version.
)

type countWriter struct {
	w     io.Writer
	count int64
}

func (cw *countWriter) Write(data []byte) (n int, err error) {
	n, err = cw.w.Write(data)
	cw.count += int64(n)
	return
}

// WriteTo encodes the snapshot: the magic, the version, and a gzip
// compressed list of records.
func (snap *Snapshot) WriteTo(w io.Writer) (n int64, err error) {
	cw := &countWriter{w: w}
	defer func() { n = cw.count }()

	_, err = io.WriteString(cw, MAGIC)
	if err != nil {
		return
	}

	err = binary.Write(cw, binary.LittleEndian, uint32(VERSION))
	if err != nil {
		return
	}

	gz := gzip.NewWriter(cw)

	err = binary.Write(gz, binary.LittleEndian, uint32(len(snap.records)))
	if err != nil {
		return
	}

	for id, data := range snap.Records() {
		err = binary.Write(gz, binary.LittleEndian, uint16(len(id)))
		if err != nil {
			return
		}
		_, err = io.WriteString(gz, id)
		if err != nil {
			return
		}
		err = binary.Write(gz, binary.LittleEndian, uint32(len(data)))
		if err != nil {
			return
		}
		_, err = gz.Write(data)
		if err != nil {
			return
		}
	}

	err = gz.Close()

	return
}

// ReadFrom decodes a snapshot written by WriteTo, replacing all records.
// On error the snapshot is left unchanged.
func (snap *Snapshot) ReadFrom(r io.Reader) (n int64, err error) {
	data, err := io.ReadAll(r)
	n = int64(len(data))
	if err != nil {
		return
	}

	if len(data) < len(MAGIC)+4 || string(data[:len(MAGIC)]) != MAGIC {
		err = ErrMagic
		return
	}

	version := binary.LittleEndian.Uint32(data[len(MAGIC):])
	if version != VERSION {
		err = ErrVersion
		return
	}

	gz, err := gzip.NewReader(bytes.NewReader(data[len(MAGIC)+4:]))
	if err != nil {
		return
	}
	defer gz.Close()

	var count uint32
	err = binary.Read(gz, binary.LittleEndian, &count)
	if err != nil {
		return
	}

	records := map[string][]byte{}
	for range count {
		var idLen uint16
		err = binary.Read(gz, binary.LittleEndian, &idLen)
		if err != nil {
			return
		}
		id := make([]byte, idLen)
		_, err = io.ReadFull(gz, id)
		if err != nil {
			return
		}

		var dataLen uint32
		err = binary.Read(gz, binary.LittleEndian, &dataLen)
		if err != nil {
			return
		}
		record := make([]byte, dataLen)
		_, err = io.ReadFull(gz, record)
		if err != nil {
			return
		}

		records[string(id)] = record
	}

	// Reach the end of the stream, so the checksum is verified.
	_, err = io.Copy(io.Discard, gz)
	if err != nil {
		return
	}

	snap.records = records

	return
}
