package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrChromeNotFound  = errors.New("Chrome browser not found. Please install Chrome, Chromium, or Brave")
	ErrElementDetached = errors.New("element is no longer attached to the page")
	ErrForeignElement  = errors.New("element belongs to a different document")
)

// DetectLaunchError maps Chrome launch failures to a known error where possible
func DetectLaunchError(err error) error {
	if err == nil {
		return nil
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "executable file not found") ||
		strings.Contains(errMsg, "chrome not found") {
		return ErrChromeNotFound
	}

	return err
}

// GetLaunchInstructions returns a user-facing hint for a launch error
func GetLaunchInstructions(err error) string {
	if errors.Is(err, ErrChromeNotFound) {
		return "Google Chrome browser not found.\n\n" +
			"Install Chrome from https://www.google.com/chrome/\n" +
			"or set browser.chrome_path / SHOPASSIST_CHROME_PATH."
	}
	return fmt.Sprintf("Browser error: %v", err)
}
