package speech

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/pion/opus/pkg/oggreader"
)

// opusGranuleRate is the fixed granule clock of Ogg/Opus streams.
const opusGranuleRate = 48000

// Duration returns the playback length of an Ogg/Opus voice note from the
// granule position of its last page.
func Duration(audio []byte) (time.Duration, error) {
	ogg, header, err := oggreader.NewWith(bytes.NewReader(audio))
	if err != nil {
		return 0, fmt.Errorf("parse OGG container: %w", err)
	}

	var last uint64
	for {
		_, page, err := ogg.ParseNextPage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("parse OGG page: %w", err)
		}
		if page.GranulePosition > last {
			last = page.GranulePosition
		}
	}

	skip := uint64(header.PreSkip)
	if last <= skip {
		return 0, nil
	}
	return time.Duration(last-skip) * time.Second / opusGranuleRate, nil
}
