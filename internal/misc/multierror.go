package misc

import (
	multierror "github.com/hashicorp/go-multierror"
)

// ErrorOrNil collapses multi into a single error.  Zero errors become nil,
// one error is returned as-is, and nested *multierror.Error values are
// flattened into a single list.
func ErrorOrNil(multi multierror.Error) error {
	switch len(multi.Errors) {
	case 0:
		return nil
	case 1:
		return multi.Errors[0]
	}

	out := &multierror.Error{
		Errors:      make([]error, 0, len(multi.Errors)),
		ErrorFormat: multi.ErrorFormat,
	}
	flatten(out, multi.Errors)
	return out
}

// AppendPrefixed appends err to multi, if non-nil, wrapped so that its message
// names the config element it applies to.
func AppendPrefixed(multi *multierror.Error, prefix string, err error) {
	if err == nil {
		return
	}
	if x, ok := err.(*multierror.Error); ok {
		for _, e := range x.Errors {
			AppendPrefixed(multi, prefix, e)
		}
		return
	}
	multi.Errors = append(multi.Errors, multierror.Prefix(err, prefix+":"))
}

func flatten(out *multierror.Error, errs []error) {
	for _, e := range errs {
		if x, ok := e.(*multierror.Error); ok {
			flatten(out, x.Errors)
			continue
		}
		out.Errors = append(out.Errors, e)
	}
}
