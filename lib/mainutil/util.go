package mainutil

import (
	"strings"
)

const (
	optionAuthData       = "authdata"
	optionAuthType       = "authtype"
	optionDialTimeout    = "dialTimeout"
	optionFormat         = "format"
	optionKeepAlive      = "keepAlive"
	optionKeepAliveTime  = "keepAliveTimeout"
	optionNamedPort      = "namedPort"
	optionNet            = "net"
	optionNetwork        = "network"
	optionPassword       = "password"
	optionPath           = "path"
	optionPort           = "port"
	optionSessionTimeout = "sessionTimeout"
	optionUniqueID       = "uniqueID"
	optionUsername       = "username"
	optionWaitForReady   = "waitForReady"

	optionValueOn = "on"
)

var incompleteOptions = map[string]string{
	optionWaitForReady: optionValueOn,
}

func splitOption(str string) (string, string, bool, error) {
	i := strings.IndexByte(str, '=')
	if i >= 0 {
		return str[:i], str[i+1:], true, nil
	}

	name := str
	value, found := incompleteOptions[name]
	if found {
		return name, value, false, nil
	}

	return name, "", false, OptionError{
		Name:     name,
		Value:    "",
		Complete: false,
		Err:      MissingOptionValueError{},
	}
}
