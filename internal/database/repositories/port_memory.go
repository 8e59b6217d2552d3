package repositories

import "context"

// LastSerialPortKey is the setting holding the last port a device answered on.
const LastSerialPortKey = "serial_last_port"

// PortMemory remembers the last working serial port in the settings table.
type PortMemory struct {
	settings *SettingRepository
}

// NewPortMemory creates a PortMemory backed by settings.
func NewPortMemory(settings *SettingRepository) *PortMemory {
	return &PortMemory{settings: settings}
}

// LastPort returns the remembered port name, or "" if none.
func (m *PortMemory) LastPort(ctx context.Context) (string, error) {
	return m.settings.GetValue(ctx, LastSerialPortKey, "")
}

// RememberPort stores name as the last working port.
func (m *PortMemory) RememberPort(ctx context.Context, name string) error {
	_, err := m.settings.Upsert(ctx, LastSerialPortKey, name)
	return err
}
