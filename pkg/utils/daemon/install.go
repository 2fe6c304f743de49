package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var (
	unitPath = filepath.Join(unitDir, UnitName)

	// systemctl is replaced in tests.
	systemctl = func(args ...string) error {
		out, err := exec.Command("systemctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %v: %w: %s", args, err, out)
		}
		return nil
	}
)

// Install writes the unit for the current executable and starts it.
func Install(configPath, socketPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	return install(unitPath, UnitOptions{
		ExePath:    exePath,
		ConfigPath: configPath,
		SocketPath: socketPath,
	})
}

func install(path string, o UnitOptions) error {
	logrus.Infof("writing systemd unit to %s", path)

	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	// warn if the file already exists
	if _, err := os.Stat(path); err == nil {
		logrus.Warnf("%s already exists, overwriting", path)
	}

	err = os.WriteFile(path, []byte(RenderUnit(o)), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logrus.Infof("starting jiobatt")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	if err := systemctl("enable", "--now", UnitName); err != nil {
		return fmt.Errorf("failed to start %s: %w", UnitName, err)
	}

	return nil
}

// Uninstall stops the service and removes its unit.
func Uninstall() error {
	return uninstall(unitPath)
}

func uninstall(path string) error {
	logrus.Infof("stopping jiobatt")

	if err := systemctl("disable", "--now", UnitName); err != nil {
		// The unit may never have been loaded; removing the file still helps.
		logrus.Warnf("failed to stop %s: %v", UnitName, err)
	}

	logrus.Infof("removing systemd unit")

	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", path, err)
	}

	return systemctl("daemon-reload")
}
