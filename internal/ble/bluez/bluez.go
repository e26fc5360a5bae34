// Package bluez talks to the BlueZ daemon over the system D-Bus. It is used
// on Linux to make sure the radio is powered before scanning and to report
// BlueZ's own view of a device for diagnostics.
package bluez

import (
	"fmt"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
)

// AdapterPath returns the object path of a BlueZ adapter, e.g. "hci0" ->
// "/org/bluez/hci0".
func AdapterPath(name string) dbus.ObjectPath {
	if name == "" {
		name = "hci0"
	}
	return dbus.ObjectPath("/org/bluez/" + name)
}

// DevicePath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func DevicePath(adapter, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(string(AdapterPath(adapter)) + "/dev_" + escaped)
}

// MACFromPath extracts a MAC address from a BlueZ device object path.
func MACFromPath(adapter string, path dbus.ObjectPath) string {
	s := string(path)
	prefix := string(AdapterPath(adapter)) + "/dev_"
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	return strings.ReplaceAll(s[len(prefix):], "_", ":")
}

// Client wraps a system D-Bus connection for BlueZ operations.
type Client struct {
	conn    *dbus.Conn
	adapter string
}

// Dial connects to the system bus and checks that BlueZ is running.
func Dial(adapter string) (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect to system bus: %w", err)
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bluez: list bus names: %w", err)
	}
	if !slices.Contains(names, busName) {
		conn.Close()
		return nil, fmt.Errorf("bluez: %s not found on system bus, is bluetooth.service running?", busName)
	}
	return &Client{conn: conn, adapter: adapter}, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	obj := c.conn.Object(busName, path)
	var v dbus.Variant
	err := obj.Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

func (c *Client) setProp(path dbus.ObjectPath, iface, prop string, val interface{}) error {
	obj := c.conn.Object(busName, path)
	return obj.Call(propsIface+".Set", 0, iface, prop, dbus.MakeVariant(val)).Err
}

func (c *Client) getBool(path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := c.getProp(path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("bluez: property %s is not bool", prop)
	}
	return val, nil
}

// Powered reports whether the adapter radio is on.
func (c *Client) Powered() (bool, error) {
	return c.getBool(AdapterPath(c.adapter), adapterIface, "Powered")
}

// EnsurePowered turns the adapter on if it is off. It reports whether the
// power state had to be changed.
func (c *Client) EnsurePowered() (bool, error) {
	on, err := c.Powered()
	if err != nil {
		return false, fmt.Errorf("bluez: read Powered: %w", err)
	}
	if on {
		return false, nil
	}
	if err := c.setProp(AdapterPath(c.adapter), adapterIface, "Powered", true); err != nil {
		return false, fmt.Errorf("bluez: power on %s: %w", c.adapter, err)
	}
	return true, nil
}

// DeviceInfo is BlueZ's view of a known device.
type DeviceInfo struct {
	Address   string
	Known     bool
	Connected bool
	Paired    bool
}

// Device looks up a device by MAC address. Unknown devices are reported with
// Known=false rather than an error.
func (c *Client) Device(addr string) DeviceInfo {
	info := DeviceInfo{Address: addr}
	path := DevicePath(c.adapter, addr)
	connected, err := c.getBool(path, deviceIface, "Connected")
	if err != nil {
		return info
	}
	info.Known = true
	info.Connected = connected
	info.Paired, _ = c.getBool(path, deviceIface, "Paired")
	return info
}
