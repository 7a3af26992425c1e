package desfire

import (
	"fmt"

	"github.com/danmuck/farectl/internal/protocol"
	"github.com/danmuck/farectl/internal/transport"
)

// MaxChainedFrames bounds additional-frame chaining for one command.
const MaxChainedFrames = 64

// Client issues native commands over a connected transport.
type Client struct {
	t transport.Transport
}

func NewClient(t transport.Transport) *Client {
	return &Client{t: t}
}

// Exchange sends one native command and follows additional-frame chaining.
// Non-OK card statuses come back as *protocol.StatusError; channel failures
// as *transport.Error.
func (c *Client) Exchange(cmd protocol.Command, data []byte) ([]byte, error) {
	var out []byte
	next, nextData := cmd, data
	for frames := 0; ; frames++ {
		if frames >= MaxChainedFrames {
			return nil, fmt.Errorf("%w: %w: %s after %d frames", ErrProtocol, ErrFrameOverflow, cmd, frames)
		}
		apdu, err := protocol.Wrap(next, nextData)
		if err != nil {
			return nil, err
		}
		raw, err := c.t.Transceive(apdu)
		if err != nil {
			return nil, transport.Wrap("transceive", err)
		}
		resp, err := protocol.Unwrap(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd, err)
		}
		out = append(out, resp.Data...)
		switch resp.Status {
		case protocol.StatusOK:
			return out, nil
		case protocol.StatusAdditionalFrame:
			next, nextData = protocol.CmdAdditionalFrame, nil
		default:
			return nil, &protocol.StatusError{Command: cmd, Status: resp.Status}
		}
	}
}

func (c *Client) GetVersion() ([]byte, error) {
	return c.Exchange(protocol.CmdGetVersion, nil)
}

// GetApplicationIDs returns the 24-bit application ids in card order.
func (c *Client) GetApplicationIDs() ([]uint32, error) {
	raw, err := c.Exchange(protocol.CmdGetApplicationIDs, nil)
	if err != nil {
		return nil, err
	}
	if len(raw)%3 != 0 {
		return nil, fmt.Errorf("%w: application id list of %d bytes", ErrProtocol, len(raw))
	}
	ids := make([]uint32, 0, len(raw)/3)
	for i := 0; i < len(raw); i += 3 {
		id, _ := protocol.Uint24(raw[i : i+3])
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) SelectApplication(id uint32) error {
	arg := make([]byte, 3)
	protocol.PutUint24(arg, id)
	_, err := c.Exchange(protocol.CmdSelectApplication, arg)
	return err
}

func (c *Client) GetFileIDs() ([]byte, error) {
	return c.Exchange(protocol.CmdGetFileIDs, nil)
}

func (c *Client) GetFileSettings(fileID byte) ([]byte, error) {
	return c.Exchange(protocol.CmdGetFileSettings, []byte{fileID})
}

// ReadData reads a whole standard or backup file.
func (c *Client) ReadData(fileID byte) ([]byte, error) {
	return c.Exchange(protocol.CmdReadData, protocol.FileArgs(fileID, 0, 0))
}

func (c *Client) GetValue(fileID byte) ([]byte, error) {
	return c.Exchange(protocol.CmdGetValue, []byte{fileID})
}

// ReadRecords reads every record of a record file.
func (c *Client) ReadRecords(fileID byte) ([]byte, error) {
	return c.Exchange(protocol.CmdReadRecords, protocol.FileArgs(fileID, 0, 0))
}
