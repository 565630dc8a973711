package odbc

import (
	"fmt"
	"sort"

	"golang.org/x/sys/windows/registry"
)

// The driver manager lists installed drivers as values of this key, each
// with the data "Installed". A 32-bit process sees the WOW6432Node view.
const driversKey = `SOFTWARE\ODBC\ODBCINST.INI\ODBC Drivers`

// Drivers returns the installed ODBC driver names.
func Drivers() ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, driversKey, registry.QUERY_VALUE)
	if err != nil {
		return nil, fmt.Errorf("open HKLM\\%s: %w", driversKey, err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(-1)
	if err != nil {
		return nil, fmt.Errorf("read HKLM\\%s: %w", driversKey, err)
	}

	drivers := []string{}
	for _, name := range names {
		state, _, err := k.GetStringValue(name)
		if err != nil || state != "Installed" {
			continue
		}
		drivers = append(drivers, name)
	}
	sort.Strings(drivers)
	return drivers, nil
}
