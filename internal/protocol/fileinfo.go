package protocol

import (
	"encoding/json"
	"fmt"
)

// FileInfo is the INFO payload describing the file about to be sent.
// The JSON field names are part of the wire contract.
type FileInfo struct {
	Name string `json:"filename"`
	Size int64  `json:"filesize"`
}

// Marshal serializes the file info as an INFO payload.
func (fi FileInfo) Marshal() ([]byte, error) {
	return json.Marshal(fi)
}

// ParseFileInfo decodes an INFO payload.
func ParseFileInfo(payload []byte) (FileInfo, error) {
	var fi FileInfo
	if err := json.Unmarshal(payload, &fi); err != nil {
		return FileInfo{}, &ProtocolError{Reason: fmt.Sprintf("malformed file info: %v", err)}
	}
	if fi.Size < 0 {
		return FileInfo{}, &ProtocolError{Reason: fmt.Sprintf("negative file size %d", fi.Size)}
	}
	return fi, nil
}
