package supervisor

import (
	"fmt"
	"os/exec"
)

// powershellBinary picks PowerShell Core if available, else falls back to
// Windows PowerShell (§4.5 "choose PowerShell Core binary if available,
// else Windows PowerShell").
func powershellBinary() string {
	if _, err := exec.LookPath("pwsh"); err == nil {
		return "pwsh"
	}
	return "powershell"
}

// buildArgs assembles the argument list forbidding profile loading and
// interactive prompts, wrapping commandText with an internal self-destruct
// timer unless disabled (§4.5 "an internal self-destruct is also scheduled
// inside the spawned process").
func buildArgs(commandText string, selfDestructMs int64, disableSelfDestruct bool) []string {
	script := commandText
	if selfDestructMs > 0 && !disableSelfDestruct {
		script = wrapWithSelfDestruct(commandText, selfDestructMs)
	}
	return []string{
		"-NoProfile",
		"-NonInteractive",
		"-NoLogo",
		"-ExecutionPolicy", "Bypass",
		"-Command", script,
	}
}

// wrapWithSelfDestruct prepends a background timer that exits the process
// with code 124 shortly before the external watchdog would fire, so the
// child terminates itself in the common case rather than relying solely on
// an external kill (§4.5 timeout model).
func wrapWithSelfDestruct(commandText string, delayMs int64) string {
	return fmt.Sprintf(`
$__sdTimer = New-Object System.Timers.Timer
$__sdTimer.Interval = %d
$__sdTimer.AutoReset = $false
Register-ObjectEvent -InputObject $__sdTimer -EventName Elapsed -Action { [Environment]::Exit(124) } | Out-Null
$__sdTimer.Start()
%s
`, delayMs, commandText)
}
