//go:build !windows && cgo

package odbc

/*
#cgo darwin CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo darwin LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lodbc
#cgo !darwin LDFLAGS: -lodbc

#include <sql.h>
#include <sqlext.h>

static SQLRETURN bridge_alloc_env(SQLHENV *env) {
    SQLRETURN ret = SQLAllocHandle(SQL_HANDLE_ENV, SQL_NULL_HANDLE, env);
    if (SQL_SUCCEEDED(ret)) {
        ret = SQLSetEnvAttr(*env, SQL_ATTR_ODBC_VERSION, (SQLPOINTER)SQL_OV_ODBC3, 0);
    }
    return ret;
}

static SQLRETURN bridge_next_driver(SQLHENV env, int first, char *desc, SQLSMALLINT desc_len, SQLSMALLINT *desc_ret) {
    SQLCHAR attr[1024];
    SQLSMALLINT attr_ret;
    return SQLDrivers(env, first ? SQL_FETCH_FIRST : SQL_FETCH_NEXT,
        (SQLCHAR *)desc, desc_len, desc_ret, attr, sizeof(attr), &attr_ret);
}

static int bridge_succeeded(SQLRETURN ret) { return SQL_SUCCEEDED(ret); }

static int bridge_no_data(SQLRETURN ret) { return ret == SQL_NO_DATA; }

static void bridge_free_env(SQLHENV env) { SQLFreeHandle(SQL_HANDLE_ENV, env); }
*/
import "C"

import "fmt"

// Drivers returns the driver names unixODBC knows from odbcinst.ini.
func Drivers() ([]string, error) {
	var env C.SQLHENV
	if ret := C.bridge_alloc_env(&env); C.bridge_succeeded(ret) == 0 {
		return nil, fmt.Errorf("allocate ODBC environment: SQLRETURN %d", int(ret))
	}
	defer C.bridge_free_env(env)

	drivers := []string{}
	var desc [512]C.char
	first := C.int(1)
	for {
		var n C.SQLSMALLINT
		ret := C.bridge_next_driver(env, first, &desc[0], C.SQLSMALLINT(len(desc)), &n)
		if C.bridge_no_data(ret) != 0 {
			break
		}
		if C.bridge_succeeded(ret) == 0 {
			return nil, fmt.Errorf("SQLDrivers: SQLRETURN %d", int(ret))
		}
		drivers = append(drivers, C.GoString(&desc[0]))
		first = 0
	}
	return drivers, nil
}
