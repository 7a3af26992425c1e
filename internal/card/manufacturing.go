package card

import "fmt"

// VersionLen is the size of the concatenated GetVersion frames.
const VersionLen = 28

// VersionInfo is a read-only view over the GetVersion blob. The blob itself
// stays opaque in the model.
type VersionInfo struct {
	HardwareVendorID    byte
	HardwareType        byte
	HardwareSubType     byte
	HardwareMajor       byte
	HardwareMinor       byte
	HardwareStorageSize byte
	HardwareProtocol    byte

	SoftwareVendorID    byte
	SoftwareType        byte
	SoftwareSubType     byte
	SoftwareMajor       byte
	SoftwareMinor       byte
	SoftwareStorageSize byte
	SoftwareProtocol    byte

	UID            [7]byte
	BatchNo        [5]byte
	ProductionWeek byte
	ProductionYear byte
}

func ParseManufacturingData(raw []byte) (VersionInfo, error) {
	if len(raw) < VersionLen {
		return VersionInfo{}, fmt.Errorf("%w: %d bytes", ErrShortVersion, len(raw))
	}
	v := VersionInfo{
		HardwareVendorID:    raw[0],
		HardwareType:        raw[1],
		HardwareSubType:     raw[2],
		HardwareMajor:       raw[3],
		HardwareMinor:       raw[4],
		HardwareStorageSize: raw[5],
		HardwareProtocol:    raw[6],
		SoftwareVendorID:    raw[7],
		SoftwareType:        raw[8],
		SoftwareSubType:     raw[9],
		SoftwareMajor:       raw[10],
		SoftwareMinor:       raw[11],
		SoftwareStorageSize: raw[12],
		SoftwareProtocol:    raw[13],
		ProductionWeek:      raw[26],
		ProductionYear:      raw[27],
	}
	copy(v.UID[:], raw[14:21])
	copy(v.BatchNo[:], raw[21:26])
	return v, nil
}

// StorageBytes decodes the storage size byte: 2^(n>>1) bytes, or a little
// more than that when the low bit is set.
func (v VersionInfo) StorageBytes() int {
	return 1 << (v.HardwareStorageSize >> 1)
}
