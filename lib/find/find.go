// Package find locates the GPIB adapter's USB serial device through sysfs.
package find

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// SysClassTTY is where the kernel lists tty devices.
const SysClassTTY = "/sys/class/tty/"

type FilterFn func(*Usbtty) bool

// PrologixFilter matches the Prologix GPIB-USB controller, an FTDI part
// whose product string names the adapter.
func PrologixFilter(ut *Usbtty) bool {
	return strings.Contains(ut.Prod, "Prologix") || strings.Contains(ut.Mfg, "Prologix")
}

// ArduinoFilter matches an Arduino running the AR488 sketch.
func ArduinoFilter(ut *Usbtty) bool {
	return strings.Contains(ut.Mfg, "Arduino")
}

// AdapterFilter matches either supported adapter.
func AdapterFilter(ut *Usbtty) bool {
	return PrologixFilter(ut) || ArduinoFilter(ut)
}

func SerialFilter(s string) func(ut *Usbtty) bool {
	return func(ut *Usbtty) bool { return ut.Serial == s }
}

// Find searches for a usb serial device. If filter is not nil,
// it is used to narrow choices down. The first device for which
// it returns true (if any) is chosen.
func Find(filter FilterFn) (string, error) {
	ttys, err := AllUsbTtys(SysClassTTY)
	if err != nil {
		return "", err
	}
	return pick(ttys, filter)
}

func pick(ttys Usbttys, filter FilterFn) (string, error) {
	if filter != nil {
		var matched Usbttys
		for i := range ttys {
			if filter(&ttys[i]) {
				matched = Usbttys{ttys[i]}
				break
			}
		}
		ttys = matched
	}

	if len(ttys) == 0 {
		return "", fmt.Errorf("no matching ttys found")
	}
	if len(ttys) == 1 {
		return ttys[0].Dev, nil
	}
	return "", fmt.Errorf("multiple ttys:\n%s", ttys)
}

type Usbtty struct {
	Dev, Path string
	IDp, IDv  string
	Mfg, Prod string
	Serial    string
}

func (u Usbtty) String() string {
	return fmt.Sprintf("dev %s path %s pid/vid %s/%s mfg/prod %s/%s serial %s", u.Dev, u.Path, u.IDp, u.IDv, u.Mfg, u.Prod, u.Serial)
}

type Usbttys []Usbtty

func (uts Usbttys) String() string {
	s := make([]string, 0, len(uts))
	for _, ut := range uts {
		s = append(s, ut.String())
	}
	return strings.Join(s, "\n")
}

// AllUsbTtys finds ttys on usb devices by following the symlinks in sct
// (normally SysClassTTY) into the device tree.
func AllUsbTtys(sct string) (Usbttys, error) {
	var devs []Usbtty
	entries, err := os.ReadDir(sct)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink == 0 {
			// just in case there's anything in the dir that isn't a symlink
			continue
		}
		// we have a symlink like
		// /sys/class/tty/ttyUSB0 ->
		// /sys/devices/pci0000:00/0000:00:14.0/usb1/1-2/1-2:1.0/ttyUSB0/tty/ttyUSB0
		path := filepath.Join(sct, e.Name())
		abs, err := filepath.EvalSymlinks(path)
		if err != nil {
			log.Debug("skipping unresolvable tty", "path", path, "err", err)
			continue
		}
		if !strings.Contains(abs, "usb") {
			continue
		}
		dev, err := filepath.EvalSymlinks(filepath.Join(abs, "device"))
		if err != nil {
			log.Debug("usb tty lacking device link", "path", abs, "err", err)
			continue
		}
		idP, idV, mfg, prod, serial, err := readUsbInfo(usbDevice(dev))
		if err != nil {
			log.Debug("reading usb info", "path", abs, "err", err)
		}
		devs = append(devs, Usbtty{
			Dev:    e.Name(),
			Path:   abs,
			IDp:    idP,
			IDv:    idV,
			Mfg:    mfg,
			Prod:   prod,
			Serial: serial,
		})
	}
	return devs, nil
}

// usbDevice walks up from a tty's device link to the usb device holding the
// descriptor strings. For ttyACM the link points at the interface (one level
// below); usb-serial drivers such as ftdi_sio add a port directory (two).
func usbDevice(dev string) string {
	d := filepath.Dir(dev)
	for i := 0; i < 3; i++ {
		if _, err := os.Stat(filepath.Join(d, "idVendor")); err == nil {
			return d
		}
		d = filepath.Dir(d)
	}
	return filepath.Dir(dev)
}

// reads prod and vendor ids, and mfg/product/serial strings
//
// returns last error encountered, ignoring os.ErrNotExist.
// errors do not prevent reading additional files or returning data collected.
func readUsbInfo(dev string) (idp, idv, mfg, prod, serial string, err error) {
	read := func(name string) string {
		b, rerr := os.ReadFile(filepath.Join(dev, name))
		if rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			err = rerr
		}
		return strings.TrimSpace(string(b))
	}
	idp = read("idProduct")
	idv = read("idVendor")
	mfg = read("manufacturer")
	prod = read("product")
	serial = read("serial")
	return idp, idv, mfg, prod, serial, err
}
