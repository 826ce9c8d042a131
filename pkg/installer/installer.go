// Package installer is the orchestrator named in spec §4.7: it glues
// bundle.Reader, partconfig.PartitionConfig, and updateenv.Environment
// together to implement `update`, and offers thin read-modify-write
// wrappers over pkg/statemachine for the remaining subcommands.
package installer

import (
	"io"
	"os"

	"github.com/Elektrobit/rupdate/pkg/blockdev"
	"github.com/Elektrobit/rupdate/pkg/bundle"
	"github.com/Elektrobit/rupdate/pkg/checksum"
	"github.com/Elektrobit/rupdate/pkg/partconfig"
	"github.com/Elektrobit/rupdate/pkg/rerror"
	"github.com/Elektrobit/rupdate/pkg/rlog"
	"github.com/Elektrobit/rupdate/pkg/statemachine"
	"github.com/Elektrobit/rupdate/pkg/updateenv"
)

// OpenWriter opens the device at path for writing the inactive variant's
// image. Installer's default implementation checks blockdev.EnsureNotMounted
// first; tests inject a stub to avoid touching real devices.
type OpenWriter func(path string) (io.WriteCloser, error)

// Installer ties the core components together for one rupdate process.
type Installer struct {
	PartConfig *partconfig.PartitionConfig
	Env        *updateenv.Environment
	OpenDevice OpenWriter
}

// New builds an Installer with the default (real block device) OpenDevice.
func New(pc *partconfig.PartitionConfig, env *updateenv.Environment) *Installer {
	return &Installer{PartConfig: pc, Env: env, OpenDevice: defaultOpenDevice}
}

func defaultOpenDevice(path string) (io.WriteCloser, error) {
	if err := blockdev.EnsureNotMounted(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, rerror.Wrapf(rerror.IoError, err, "opening device %s", path)
	}
	return f, nil
}

// DevicePath builds the Linux-facing device node path for a descriptor.
func DevicePath(pd partconfig.PartitionDescriptor) string {
	return "/dev/" + pd.LinuxDevice.String() + pd.LinuxPartition.String()
}

type hashWriter struct{ h checksum.Hasher }

func (hw *hashWriter) Write(p []byte) (int, error) {
	hw.h.Update(p)
	return len(p), nil
}

// Update performs spec §4.7's `update` orchestration: stream the bundle,
// write each image to its set's inactive variant while verifying its
// checksum, and on full success mark UpdateEnv Installed. In dry mode the
// device-write branch is suppressed but checksum verification and manifest
// validation still run, and UpdateEnv is left untouched.
func (i *Installer) Update(stream io.Reader, dry bool) error {
	current, err := i.Env.GetCurrentState()
	if err != nil {
		return err
	}
	if current.State != updateenv.Normal && current.State != updateenv.Installed {
		return rerror.Newf(rerror.InvalidStateTransition, "cannot update from state %s", current.State)
	}

	br, err := bundle.Open(stream)
	if err != nil {
		return err
	}
	manifest := br.Manifest()

	affectedSets := make([]string, 0, len(manifest.Images))
	for idx := 0; idx < len(manifest.Images); idx++ {
		img, imgStream, err := br.NextImage()
		if err != nil {
			return err
		}

		if err := i.writeAndVerifyImage(current, img, imgStream, dry); err != nil {
			return err
		}
		affectedSets = append(affectedSets, img.Name)
	}
	if err := br.Finish(); err != nil {
		return err
	}

	next, err := statemachine.Update(current, affectedSets, manifest.RollbackAllowed)
	if err != nil {
		return err
	}
	if dry {
		rlog.Info("dry run: update would have completed successfully")
		return nil
	}
	return i.Env.WriteNextState(next)
}

func (i *Installer) writeAndVerifyImage(current *updateenv.UpdateState, img bundle.Image, stream io.Reader, dry bool) error {
	set, err := i.PartConfig.ResolveSet(img.Name)
	if err != nil {
		return err
	}
	sel, err := current.Selection(img.Name)
	if err != nil {
		return err
	}
	inactive := sel.Active.Opposite()
	target, err := i.PartConfig.ResolvePartition(set.Name.String(), inactive)
	if err != nil {
		return err
	}

	hasher, err := checksum.New(img.ChecksumType)
	if err != nil {
		return rerror.Wrap(rerror.MalformedEncoding, err, "selecting checksum algorithm")
	}

	var dst io.Writer = io.Discard
	var closer io.WriteCloser
	if !dry {
		devicePath := DevicePath(target)
		rlog.Debugf("writing image %q to %s (want %s)", img.Name, devicePath, checksum.Digest(img.ChecksumType, img.Checksum))
		closer, err = i.OpenDevice(devicePath)
		if err != nil {
			return err
		}
		dst = closer
	}

	multi := io.MultiWriter(dst, &hashWriter{h: hasher})
	_, copyErr := io.Copy(multi, stream)
	if closer != nil {
		_ = closer.Close()
	}
	if copyErr != nil {
		return rerror.Wrapf(rerror.IoError, copyErr, "writing image %q", img.Name)
	}

	sum := hasher.Finalize()
	if !checksum.Equal(sum, img.Checksum) {
		return rerror.Newf(rerror.ChecksumMismatch, "image %q checksum mismatch: got %s", img.Name, checksum.Digest(img.ChecksumType, sum))
	}
	rlog.Debugf("image %q verified: %s", img.Name, checksum.Digest(img.ChecksumType, sum))
	return nil
}

// Commit is a thin wrapper over statemachine.Commit plus one
// read-modify-write cycle.
func (i *Installer) Commit(bootRetries int16) error {
	current, err := i.Env.GetCurrentState()
	if err != nil {
		return err
	}
	next, err := statemachine.Commit(current, bootRetries)
	if err != nil {
		return err
	}
	return i.Env.WriteNextState(next)
}

// Finish is a thin wrapper over statemachine.Finish.
func (i *Installer) Finish() error {
	current, err := i.Env.GetCurrentState()
	if err != nil {
		return err
	}
	next, err := statemachine.Finish(current)
	if err != nil {
		return err
	}
	return i.Env.WriteNextState(next)
}

// Revert is a thin wrapper over statemachine.Revert.
func (i *Installer) Revert() error {
	current, err := i.Env.GetCurrentState()
	if err != nil {
		return err
	}
	next, err := statemachine.Revert(current)
	if err != nil {
		return err
	}
	return i.Env.WriteNextState(next)
}

// Rollback is a thin wrapper over statemachine.Rollback.
func (i *Installer) Rollback() error {
	current, err := i.Env.GetCurrentState()
	if err != nil {
		return err
	}
	next, err := statemachine.Rollback(current)
	if err != nil {
		return err
	}
	return i.Env.WriteNextState(next)
}

// State returns the current UpdateState for `state`/`env`.
func (i *Installer) State() (*updateenv.UpdateState, error) {
	return i.Env.GetCurrentState()
}
