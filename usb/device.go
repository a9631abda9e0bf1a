package usb

// Device collects the descriptors, string table, and configuration(s) a
// class device assembles itself into. It mirrors the teacher's
// Device{Descriptor, Qualifier, Configurations, Strings} shape: the class
// driver builds one of these at construction time and the bus core reads
// it back when answering GetDescriptor.
type Device struct {
	Descriptor     *DeviceDescriptor
	Qualifier      *DeviceQualifierDescriptor
	Configurations []*ConfigurationDescriptor
	Strings        []*StringDescriptor
}

// AddString appends s to the string table and returns its 1-based index,
// as required by the USB string-descriptor-index convention (index 0 is
// reserved for the language ID list).
func (d *Device) AddString(s string) uint8 {
	d.Strings = append(d.Strings, NewStringDescriptor(s))
	return uint8(len(d.Strings))
}

// AddConfiguration appends conf, finalizing Device.Descriptor's
// NumConfigurations.
func (d *Device) AddConfiguration(conf *ConfigurationDescriptor) {
	d.Configurations = append(d.Configurations, conf)
	d.Descriptor.NumConfigurations = uint8(len(d.Configurations))
}

// Configuration returns the configuration descriptor for the given
// 1-based wValue index, or nil if out of range. Its Bytes method
// serializes it and computes TotalLength.
func (d *Device) Configuration(wValue uint16) *ConfigurationDescriptor {
	idx := int(wValue)
	if idx < 1 || idx > len(d.Configurations) {
		return nil
	}
	return d.Configurations[idx-1]
}

// String returns the string descriptor for the given 1-based index, or
// nil if out of range.
func (d *Device) String(index uint8) *StringDescriptor {
	idx := int(index)
	if idx < 1 || idx > len(d.Strings) {
		return nil
	}
	return d.Strings[idx-1]
}
