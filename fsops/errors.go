package fsops

import (
	"github.com/pkg/errors"

	"github.com/arenafs/arenafs/common"
)

func errNotDir() error   { return errors.WithStack(common.ENOTDIR) }
func errIsDir() error    { return errors.WithStack(common.EISDIR) }
func errExist() error    { return errors.WithStack(common.EEXIST) }
func errInval() error    { return errors.WithStack(common.EINVAL) }
func errBusy() error     { return errors.WithStack(common.EBUSY) }
func errNotEmpty() error { return errors.WithStack(common.ENOTEMPTY) }
