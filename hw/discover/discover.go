// Package discover enumerates attached USB-serial adapters so
// cmd/rcjoy-bridge can find the SRXL UART without a hardcoded device
// path.
package discover

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

/*-------------------------------------------------------------------
 *
 * Name:	Adapter
 *
 * Purpose:	One USB-serial tty device node plus the identifying
 *		information a caller needs to pick the right one when
 *		more than one is plugged in.
 *
 *--------------------------------------------------------------*/

type Adapter struct {
	DevNode   string
	VendorID  string
	ProductID string
	Serial    string
}

// List returns every tty device node backed by a USB-serial adapter.
func List() ([]Adapter, error) {
	u := udev.Udev{}
	enum := u.NewEnumerateFromUdev()
	if enum == nil {
		return nil, fmt.Errorf("discover: could not create udev enumerator")
	}
	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("discover: match subsystem: %w", err)
	}
	if err := enum.AddMatchIsInitialized(); err != nil {
		return nil, fmt.Errorf("discover: match initialized: %w", err)
	}

	devices, err := enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("discover: enumerate devices: %w", err)
	}

	var adapters []Adapter
	for _, dev := range devices {
		node := dev.Devnode()
		if node == "" {
			continue
		}
		usb := dev.ParentWithSubsystemDevtype("usb", "usb_device")
		if usb == nil {
			continue
		}
		adapters = append(adapters, Adapter{
			DevNode:   node,
			VendorID:  usb.PropertyValue("ID_VENDOR_ID"),
			ProductID: usb.PropertyValue("ID_MODEL_ID"),
			Serial:    usb.PropertyValue("ID_SERIAL_SHORT"),
		})
	}
	return adapters, nil
}

// FindByIDs returns the device node of the first adapter whose USB
// vendor/product IDs match, or an error if none is attached.
func FindByIDs(vendorID, productID string) (string, error) {
	adapters, err := List()
	if err != nil {
		return "", err
	}
	for _, a := range adapters {
		if a.VendorID == vendorID && a.ProductID == productID {
			return a.DevNode, nil
		}
	}
	return "", fmt.Errorf("discover: no adapter with vendor %s product %s attached", vendorID, productID)
}
