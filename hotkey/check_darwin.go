package hotkey

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <stdbool.h>
#include <ApplicationServices/ApplicationServices.h>

bool accessibilityTrusted(bool prompt) {
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *vals[] = { prompt ? kCFBooleanTrue : kCFBooleanFalse };
    CFDictionaryRef opts = CFDictionaryCreate(NULL, keys, vals, 1,
        &kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    bool ok = AXIsProcessTrustedWithOptions(opts);
    CFRelease(opts);
    return ok;
}
*/
import "C"

// IsAccessibilityEnabled reports whether the process may observe global key events.
// With prompt set, macOS shows the permission dialog when access is missing.
func IsAccessibilityEnabled(prompt bool) bool {
	return bool(C.accessibilityTrusted(C.bool(prompt)))
}

func platformCheck() error {
	if !IsAccessibilityEnabled(true) {
		return ErrNoAccessibility
	}
	return nil
}
