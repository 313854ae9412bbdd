package find

import (
	"os"
	"path/filepath"
	"testing"
)

// fakeSysfs lays out a /sys lookalike with an AR488 on ttyACM0, a Prologix
// on ttyUSB0 and a virtual console.
func fakeSysfs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mk := func(p string) string {
		p = filepath.Join(root, p)
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
		return p
	}
	write := func(dir string, kv map[string]string) {
		for k, v := range kv {
			if err := os.WriteFile(filepath.Join(dir, k), []byte(v+"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	link := func(target, name string) {
		if err := os.Symlink(target, name); err != nil {
			t.Fatal(err)
		}
	}
	class := mk("class/tty")

	acm := mk("devices/pci0000:00/usb1/1-10")
	write(acm, map[string]string{"idProduct": "0043", "idVendor": "2341", "manufacturer": "Arduino (www.arduino.cc)", "serial": "7573530303"})
	acmIface := mk("devices/pci0000:00/usb1/1-10/1-10:1.0")
	acmTty := mk("devices/pci0000:00/usb1/1-10/1-10:1.0/tty/ttyACM0")
	link(acmIface, filepath.Join(acmTty, "device"))
	link(acmTty, filepath.Join(class, "ttyACM0"))

	ftdi := mk("devices/pci0000:00/usb1/1-2")
	write(ftdi, map[string]string{"idProduct": "6001", "idVendor": "0403", "manufacturer": "Prologix", "product": "Prologix GPIB-USB Controller", "serial": "PX8X3YR6"})
	ftdiPort := mk("devices/pci0000:00/usb1/1-2/1-2:1.0/ttyUSB0")
	ftdiTty := mk("devices/pci0000:00/usb1/1-2/1-2:1.0/ttyUSB0/tty/ttyUSB0")
	link(ftdiPort, filepath.Join(ftdiTty, "device"))
	link(ftdiTty, filepath.Join(class, "ttyUSB0"))

	console := mk("devices/virtual/tty/tty0")
	link(console, filepath.Join(class, "tty0"))
	return class
}

func TestFindAdapters(t *testing.T) {
	ttys, err := AllUsbTtys(fakeSysfs(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(ttys) != 2 {
		t.Fatalf("Expected 2 usb ttys, got %d:\n%s", len(ttys), ttys)
	}
	testCases := []struct {
		name     string
		filter   FilterFn
		expected string
	}{
		{"prologix", PrologixFilter, "ttyUSB0"},
		{"arduino", ArduinoFilter, "ttyACM0"},
		{"serial", SerialFilter("PX8X3YR6"), "ttyUSB0"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dev, err := pick(ttys, tc.filter)
			if err != nil {
				t.Fatal(err)
			}
			if dev != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, dev)
			}
		})
	}
	for _, ut := range ttys {
		if ut.Dev == "ttyUSB0" && (ut.IDv != "0403" || ut.Serial != "PX8X3YR6") {
			t.Errorf("usb info not read through the port directory: %s", ut)
		}
	}
}

func TestPickAmbiguous(t *testing.T) {
	ttys := Usbttys{{Dev: "ttyUSB0"}, {Dev: "ttyUSB1"}}
	if _, err := pick(ttys, nil); err == nil {
		t.Error("Expected error for two candidates")
	}
	if _, err := pick(ttys, SerialFilter("nope")); err == nil {
		t.Error("Expected error when nothing matches")
	}
	dev, err := pick(ttys[:1], nil)
	if err != nil || dev != "ttyUSB0" {
		t.Errorf("pick single = %s, %v", dev, err)
	}
}
