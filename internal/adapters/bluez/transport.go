// Package bluez implements the BLE UART transport on top of the BlueZ
// D-Bus API.
package bluez

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/bft-labs/hubterm/internal/domain"
	"github.com/bft-labs/hubterm/internal/ports"
)

const (
	busName              = "org.bluez"
	gattCharacteristic   = "org.bluez.GattCharacteristic1"
	propertiesInterface  = "org.freedesktop.DBus.Properties"
	propertiesChanged    = propertiesInterface + ".PropertiesChanged"
	getManagedObjects    = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	notificationsBacklog = 64
)

// Nordic UART characteristics used by the hub.
const (
	DefaultRXChar = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	DefaultTXChar = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
)

// DefaultAdapter is the local controller used when none is configured.
const DefaultAdapter = "hci0"

// Config selects the connected hub and its UART characteristics.
type Config struct {
	Adapter string
	Device  string // MAC address, e.g. "90:84:2B:01:02:03"
	RXChar  string // written by us
	TXChar  string // notified by the hub
}

// managedObjects is the reply of ObjectManager.GetManagedObjects.
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Transport implements ports.Transport for a hub already connected through
// BlueZ. Writes go to the RX characteristic with WriteValue; every value
// change of the TX characteristic becomes a notification.
type Transport struct {
	conn   *dbus.Conn
	rx     dbus.BusObject
	tx     dbus.BusObject
	txPath dbus.ObjectPath
	logger ports.Logger

	acks          chan domain.Ack
	notifications chan domain.Notification
	signals       chan *dbus.Signal

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Dial connects to the system bus, resolves the characteristics of the
// configured device and enables notifications.
func Dial(ctx context.Context, cfg Config, logger ports.Logger) (*Transport, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: bluez device address is required", domain.ErrInvalidConfig)
	}
	if cfg.Adapter == "" {
		cfg.Adapter = DefaultAdapter
	}
	if cfg.RXChar == "" {
		cfg.RXChar = DefaultRXChar
	}
	if cfg.TXChar == "" {
		cfg.TXChar = DefaultTXChar
	}

	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	t, err := open(ctx, conn, cfg, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

func open(ctx context.Context, conn *dbus.Conn, cfg Config, logger ports.Logger) (*Transport, error) {
	objects := make(managedObjects)
	root := conn.Object(busName, "/")
	if err := root.CallWithContext(ctx, getManagedObjects, 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}

	device := DevicePath(cfg.Adapter, cfg.Device)
	rxPath, err := findCharacteristic(objects, device, cfg.RXChar)
	if err != nil {
		return nil, err
	}
	txPath, err := findCharacteristic(objects, device, cfg.TXChar)
	if err != nil {
		return nil, err
	}

	t := &Transport{
		conn:          conn,
		rx:            conn.Object(busName, rxPath),
		tx:            conn.Object(busName, txPath),
		txPath:        txPath,
		logger:        logger,
		acks:          make(chan domain.Ack, 1),
		notifications: make(chan domain.Notification, notificationsBacklog),
		signals:       make(chan *dbus.Signal, notificationsBacklog),
		done:          make(chan struct{}),
	}

	if err := conn.AddMatchSignalContext(ctx, t.matchOptions()...); err != nil {
		return nil, fmt.Errorf("add match: %w", err)
	}
	conn.Signal(t.signals)

	if err := t.tx.CallWithContext(ctx, gattCharacteristic+".StartNotify", 0).Err; err != nil {
		conn.RemoveSignal(t.signals)
		return nil, fmt.Errorf("start notify on %s: %w", txPath, err)
	}

	logger.Info("bluez transport ready",
		ports.String("device", string(device)),
		ports.String("rx", string(rxPath)),
		ports.String("tx", string(txPath)))

	t.wg.Add(1)
	go t.signalLoop()
	return t, nil
}

func (t *Transport) matchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(t.txPath),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
}

// Write issues WriteValue without waiting for the reply. The reply arrives
// later on Acks under req.ID.
func (t *Transport) Write(ctx context.Context, req domain.WriteRequest) error {
	select {
	case <-t.done:
		return domain.ErrTransportClosed
	default:
	}

	options := map[string]dbus.Variant{"type": dbus.MakeVariant("request")}
	call := t.rx.GoWithContext(ctx, gattCharacteristic+".WriteValue", 0, make(chan *dbus.Call, 1), req.Data, options)
	if call.Err != nil {
		return call.Err
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		select {
		case c := <-call.Done:
			t.deliverAck(domain.Ack{ID: req.ID, Err: c.Err})
		case <-t.done:
		}
	}()
	return nil
}

func (t *Transport) deliverAck(ack domain.Ack) {
	select {
	case t.acks <- ack:
	case <-t.done:
	}
}

// Acks implements ports.Transport.
func (t *Transport) Acks() <-chan domain.Ack { return t.acks }

// Notifications implements ports.Transport. The channel is closed when the
// bus connection goes away or Close is called.
func (t *Transport) Notifications() <-chan domain.Notification { return t.notifications }

func (t *Transport) signalLoop() {
	defer t.wg.Done()
	defer close(t.notifications)

	for {
		select {
		case <-t.done:
			return
		case sig, ok := <-t.signals:
			if !ok {
				t.logger.Warn("bus connection closed")
				return
			}
			n, ok := notificationFromSignal(sig, t.txPath)
			if !ok {
				continue
			}
			select {
			case t.notifications <- n:
			case <-t.done:
				return
			}
		}
	}
}

// Close stops notifications and releases the bus connection.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if callErr := t.tx.Call(gattCharacteristic+".StopNotify", 0).Err; callErr != nil {
			t.logger.Debug("stop notify failed", ports.Err(callErr))
		}
		_ = t.conn.RemoveMatchSignal(t.matchOptions()...)
		t.conn.RemoveSignal(t.signals)
		close(t.done)
		err = t.conn.Close()
		t.wg.Wait()
	})
	return err
}

// DevicePath returns the BlueZ object path of a device, e.g.
// /org/bluez/hci0/dev_90_84_2B_01_02_03.
func DevicePath(adapter, address string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/bluez/%s/dev_%s",
		adapter, strings.ReplaceAll(strings.ToUpper(address), ":", "_")))
}

// findCharacteristic returns the path of the GATT characteristic with the
// given UUID below device.
func findCharacteristic(objects managedObjects, device dbus.ObjectPath, uuid string) (dbus.ObjectPath, error) {
	prefix := string(device) + "/"
	for path, interfaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		props, ok := interfaces[gattCharacteristic]
		if !ok {
			continue
		}
		v, ok := props["UUID"]
		if !ok {
			continue
		}
		if s, ok := v.Value().(string); ok && strings.EqualFold(s, uuid) {
			return path, nil
		}
	}
	return "", fmt.Errorf("characteristic %s not found on %s", uuid, device)
}

// notificationFromSignal extracts a new Value of the TX characteristic from
// a PropertiesChanged signal.
func notificationFromSignal(sig *dbus.Signal, txPath dbus.ObjectPath) (domain.Notification, bool) {
	if sig == nil || sig.Name != propertiesChanged || sig.Path != txPath {
		return domain.Notification{}, false
	}
	if len(sig.Body) < 2 {
		return domain.Notification{}, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != gattCharacteristic {
		return domain.Notification{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return domain.Notification{}, false
	}
	v, ok := changed["Value"]
	if !ok {
		return domain.Notification{}, false
	}
	value, ok := v.Value().([]byte)
	if !ok {
		return domain.Notification{}, false
	}
	return domain.Notification{Value: append([]byte(nil), value...)}, true
}

var _ ports.Transport = (*Transport)(nil)
