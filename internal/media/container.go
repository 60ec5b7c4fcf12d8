package media

import (
	"bytes"
	"io"
	"os"
)

// Container families recognised from a file header.
const (
	ContainerMP4     = "mp4"
	ContainerMOV     = "mov"
	ContainerWAV     = "wav"
	ContainerUnknown = ""
)

// isoBoxes are top-level box types that can open an ISO BMFF file.
var isoBoxes = [][]byte{
	[]byte("ftyp"),
	[]byte("moov"),
	[]byte("mdat"),
	[]byte("free"),
	[]byte("wide"),
	[]byte("skip"),
}

// sniffContainer reads the first bytes of path and names its container
// family. It works on truncated files that ffprobe refuses to open.
func sniffContainer(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ContainerUnknown
	}
	defer f.Close()

	head := make([]byte, 12)
	if _, err := io.ReadFull(f, head); err != nil {
		return ContainerUnknown
	}
	return containerOf(head)
}

func containerOf(head []byte) string {
	if len(head) < 12 {
		return ContainerUnknown
	}
	if bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")) {
		return ContainerWAV
	}
	box := head[4:8]
	for _, b := range isoBoxes {
		if !bytes.Equal(box, b) {
			continue
		}
		if bytes.Equal(box, []byte("ftyp")) && bytes.Equal(head[8:12], []byte("qt  ")) {
			return ContainerMOV
		}
		return ContainerMP4
	}
	return ContainerUnknown
}

// remuxable reports whether a stream copy into a fresh container of this
// family can rebuild a missing or truncated index.
func remuxable(container string) bool {
	return container == ContainerMP4 || container == ContainerMOV
}
