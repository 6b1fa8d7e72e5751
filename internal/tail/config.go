package tail

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/rtls/internal/rtlserr"
)

func (f *Frame) decodeConfigRequest(data []byte, ptr int) error {
	f.ConfigSub = ConfigSub(f.Subtype)
	switch f.ConfigSub {
	case ConfigReset:
		if len(data) < ptr+2 {
			return fmt.Errorf("tail: short config reset magic: %w", rtlserr.ErrParse)
		}
		f.ResetMagic = binary.LittleEndian.Uint16(data[ptr : ptr+2])
	case ConfigEnumerate:
		if len(data) < ptr+2 {
			return fmt.Errorf("tail: short config enumerate iterator: %w", rtlserr.ErrParse)
		}
		f.Iterator = binary.LittleEndian.Uint16(data[ptr : ptr+2])
	case ConfigRead, ConfigDelete:
		keys, err := decodeConfigKeys(data, ptr)
		if err != nil {
			return err
		}
		f.ConfigKeys = keys
	case ConfigWrite:
		values, err := decodeConfigKV(data, ptr)
		if err != nil {
			return err
		}
		f.ConfigValues = values
	case ConfigSalt:
		if len(data) < ptr+16 {
			return fmt.Errorf("tail: short config salt: %w", rtlserr.ErrParse)
		}
		f.ConfigSalt = append([]byte(nil), data[ptr:ptr+16]...)
	case ConfigTest:
		f.ConfigTest = append([]byte(nil), data[ptr:]...)
	default:
		return fmt.Errorf("tail: unknown config request subtype %d: %w", f.Subtype, rtlserr.ErrUnsupportedFrame)
	}
	return nil
}

func (f *Frame) decodeConfigResponse(data []byte, ptr int) error {
	f.ConfigSub = ConfigSub(f.Subtype)
	switch f.ConfigSub {
	case ConfigReset:
		if len(data) < ptr+2 {
			return fmt.Errorf("tail: short config reset magic: %w", rtlserr.ErrParse)
		}
		f.ResetMagic = binary.LittleEndian.Uint16(data[ptr : ptr+2])
	case ConfigEnumerate:
		if len(data) < ptr+3 {
			return fmt.Errorf("tail: short config enumerate header: %w", rtlserr.ErrParse)
		}
		f.Iterator = binary.LittleEndian.Uint16(data[ptr : ptr+2])
		count := int(data[ptr+2])
		ptr += 3
		keys := make([]uint16, 0, count)
		for i := 0; i < count; i++ {
			if len(data) < ptr+2 {
				return fmt.Errorf("tail: short config enumerate key: %w", rtlserr.ErrParse)
			}
			keys = append(keys, binary.LittleEndian.Uint16(data[ptr:ptr+2]))
			ptr += 2
		}
		f.ConfigKeys = keys
	case ConfigRead:
		values, err := decodeConfigKV(data, ptr)
		if err != nil {
			return err
		}
		f.ConfigValues = values
	case ConfigWrite, ConfigDelete:
		if len(data) < ptr+1 {
			return fmt.Errorf("tail: short config response code: %w", rtlserr.ErrParse)
		}
		f.RespCode = data[ptr]
	case ConfigSalt:
		if len(data) < ptr+16 {
			return fmt.Errorf("tail: short config salt: %w", rtlserr.ErrParse)
		}
		f.ConfigSalt = append([]byte(nil), data[ptr:ptr+16]...)
	case ConfigTest:
		f.ConfigTest = append([]byte(nil), data[ptr:]...)
	default:
		return fmt.Errorf("tail: unknown config response subtype %d: %w", f.Subtype, rtlserr.ErrUnsupportedFrame)
	}
	return nil
}

func decodeConfigKeys(data []byte, ptr int) ([]uint16, error) {
	if len(data) < ptr+1 {
		return nil, fmt.Errorf("tail: short config key count: %w", rtlserr.ErrParse)
	}
	count := int(data[ptr])
	ptr++
	keys := make([]uint16, 0, count)
	for i := 0; i < count; i++ {
		if len(data) < ptr+2 {
			return nil, fmt.Errorf("tail: short config key: %w", rtlserr.ErrParse)
		}
		keys = append(keys, binary.LittleEndian.Uint16(data[ptr:ptr+2]))
		ptr += 2
	}
	return keys, nil
}

func decodeConfigKV(data []byte, ptr int) (map[uint16][]byte, error) {
	if len(data) < ptr+1 {
		return nil, fmt.Errorf("tail: short config kv count: %w", rtlserr.ErrParse)
	}
	count := int(data[ptr])
	ptr++
	values := make(map[uint16][]byte, count)
	for i := 0; i < count; i++ {
		if len(data) < ptr+3 {
			return nil, fmt.Errorf("tail: short config kv entry: %w", rtlserr.ErrParse)
		}
		key := binary.LittleEndian.Uint16(data[ptr : ptr+2])
		ptr += 2
		n := int(data[ptr])
		ptr++
		if len(data) < ptr+n {
			return nil, fmt.Errorf("tail: short config kv value: %w", rtlserr.ErrParse)
		}
		values[key] = append([]byte(nil), data[ptr:ptr+n]...)
		ptr += n
	}
	return values, nil
}
