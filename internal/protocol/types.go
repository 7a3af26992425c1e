package protocol

import "fmt"

// Command is a native command code, sent as the INS byte of a wrapped APDU.
type Command byte

const (
	CmdGetVersion        Command = 0x60
	CmdGetApplicationIDs Command = 0x6A
	CmdSelectApplication Command = 0x5A
	CmdGetFileIDs        Command = 0x6F
	CmdGetFileSettings   Command = 0xF5
	CmdReadData          Command = 0xBD
	CmdGetValue          Command = 0x6C
	CmdReadRecords       Command = 0xBB
	CmdAdditionalFrame   Command = 0xAF
)

func (c Command) String() string {
	switch c {
	case CmdGetVersion:
		return "GetVersion"
	case CmdGetApplicationIDs:
		return "GetApplicationIDs"
	case CmdSelectApplication:
		return "SelectApplication"
	case CmdGetFileIDs:
		return "GetFileIDs"
	case CmdGetFileSettings:
		return "GetFileSettings"
	case CmdReadData:
		return "ReadData"
	case CmdGetValue:
		return "GetValue"
	case CmdReadRecords:
		return "ReadRecords"
	case CmdAdditionalFrame:
		return "AdditionalFrame"
	default:
		return fmt.Sprintf("Command(0x%02X)", byte(c))
	}
}

// Status is the card status carried in SW2 of a wrapped response.
type Status byte

const (
	StatusOK                  Status = 0x00
	StatusNoChanges           Status = 0x0C
	StatusOutOfEEPROM         Status = 0x0E
	StatusIllegalCommand      Status = 0x1C
	StatusIntegrityError      Status = 0x1E
	StatusNoSuchKey           Status = 0x40
	StatusLengthError         Status = 0x7E
	StatusPermissionDenied    Status = 0x9D
	StatusParameterError      Status = 0x9E
	StatusApplicationNotFound Status = 0xA0
	StatusAuthenticationError Status = 0xAE
	StatusAdditionalFrame     Status = 0xAF
	StatusBoundaryError       Status = 0xBE
	StatusCommandAborted      Status = 0xCA
	StatusCountError          Status = 0xCE
	StatusDuplicateError      Status = 0xDE
	StatusEEPROMError         Status = 0xEE
	StatusFileNotFound        Status = 0xF0
	StatusFileIntegrityError  Status = 0xF1
)

var statusNames = map[Status]string{
	StatusOK:                  "OPERATION_OK",
	StatusNoChanges:           "NO_CHANGES",
	StatusOutOfEEPROM:         "OUT_OF_EEPROM_ERROR",
	StatusIllegalCommand:      "ILLEGAL_COMMAND_CODE",
	StatusIntegrityError:      "INTEGRITY_ERROR",
	StatusNoSuchKey:           "NO_SUCH_KEY",
	StatusLengthError:         "LENGTH_ERROR",
	StatusPermissionDenied:    "PERMISSION_DENIED",
	StatusParameterError:      "PARAMETER_ERROR",
	StatusApplicationNotFound: "APPLICATION_NOT_FOUND",
	StatusAuthenticationError: "AUTHENTICATION_ERROR",
	StatusAdditionalFrame:     "ADDITIONAL_FRAME",
	StatusBoundaryError:       "BOUNDARY_ERROR",
	StatusCommandAborted:      "COMMAND_ABORTED",
	StatusCountError:          "COUNT_ERROR",
	StatusDuplicateError:      "DUPLICATE_ERROR",
	StatusEEPROMError:         "EEPROM_ERROR",
	StatusFileNotFound:        "FILE_NOT_FOUND",
	StatusFileIntegrityError:  "FILE_INTEGRITY_ERROR",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return fmt.Sprintf("%s(0x%02X)", name, byte(s))
	}
	return fmt.Sprintf("Status(0x%02X)", byte(s))
}

// AccessDenied reports whether the status means the current
// authentication state forbids the operation.
func (s Status) AccessDenied() bool {
	return s == StatusPermissionDenied || s == StatusAuthenticationError
}

// Response is one unwrapped card response.
type Response struct {
	Status Status
	Data   []byte
}
