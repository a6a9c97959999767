package patterns

// Builtin returns the default pattern set, ordered within each tier the way
// it will be scanned (first match wins, §4.2 step 4/5).
//
// Pattern bodies are grounded on the teacher's tiered rm/git/kubectl rules
// (internal/core/patterns.go in the teacher repo) generalized to PowerShell
// cmdlets and Windows-specific destructive operations.
func Builtin() []*Pattern {
	var out []*Pattern
	add := func(tier Tier, category, id, expr, desc string) {
		out = append(out, MustCompile(id, tier, category, expr, desc))
	}

	// --- BLOCKED: never executable, no override path in the default build.
	add(TierBlocked, "SECURITY_THREAT", "blocked-reverse-shell",
		`New-Object\s+System\.Net\.Sockets\.TCPClient`,
		"raw TCP client construction, a common reverse-shell primitive")
	add(TierBlocked, "SECURITY_THREAT", "blocked-download-cradle-exec",
		`(IEX|Invoke-Expression)\s*\(\s*(IWR|Invoke-WebRequest|New-Object\s+Net\.WebClient)`,
		"download-and-execute cradle")
	add(TierBlocked, "SECURITY_THREAT", "blocked-amsi-bypass",
		`\[Ref\]\.Assembly\.GetType\(.*AmsiUtils`,
		"AMSI bypass via reflection")
	add(TierBlocked, "OS_DESTRUCTIVE", "blocked-format-system-volume",
		`Format-Volume\s+.*-DriveLetter\s+C\b`,
		"formatting the system volume")
	add(TierBlocked, "OS_DESTRUCTIVE", "blocked-clear-disk",
		`Clear-Disk\b`,
		"wiping an entire disk")

	// --- CRITICAL: 2+ approvals in the teacher's quorum model; here, a
	// blocking tier that the gate rejects outright, like BLOCKED.
	add(TierCritical, "OS_DESTRUCTIVE", "critical-remove-item-root",
		`Remove-Item\s+.*-(Recurse|Force).*\s+(C:\\$|C:\\Windows|/(bin|boot|etc|lib|usr|var)(\s|$))`,
		"recursive delete targeting a system root")
	add(TierCritical, "OS_DESTRUCTIVE", "critical-rm-root",
		`^rm\s+(-[rf]+\s+)+/($|\s)`,
		"rm -rf / equivalent invoked from PowerShell")
	add(TierCritical, "VCS_DESTRUCTIVE", "critical-git-force-push",
		`git\s+push\s+.*--force(\s|$)`,
		"force push, can discard remote history")
	add(TierCritical, "VCS_DESTRUCTIVE", "critical-git-force-push-short",
		`git\s+push\s+.*\s-f(\s|$)`,
		"force push (short flag)")
	add(TierCritical, "DATA_DESTRUCTIVE", "critical-sql-drop-database",
		`DROP\s+DATABASE`,
		"irreversible database destruction")
	add(TierCritical, "DATA_DESTRUCTIVE", "critical-sql-truncate",
		`TRUNCATE\s+TABLE`,
		"unconditional table truncation")
	add(TierCritical, "OS_DESTRUCTIVE", "critical-disable-firewall",
		`Set-NetFirewallProfile\s+.*-Enabled\s+False`,
		"disabling the host firewall")
	add(TierCritical, "OS_DESTRUCTIVE", "critical-execution-policy-unrestricted",
		`Set-ExecutionPolicy\s+Unrestricted`,
		"removing PowerShell's script execution safeguard")
	add(TierCritical, "ACCOUNT_MUTATION", "critical-remove-local-admin",
		`Remove-LocalGroupMember\s+.*-Group\s+["']?Administrators`,
		"removing a member from the local Administrators group")

	// --- DANGEROUS: 1 approval in the teacher's quorum model; here, also a
	// blocking tier that the gate rejects outright.
	add(TierDangerous, "OS_DESTRUCTIVE", "dangerous-remove-item-recurse-force",
		`Remove-Item\s+.*-Recurse.*-Force|Remove-Item\s+.*-Force.*-Recurse`,
		"recursive forced delete")
	add(TierDangerous, "VCS_MUTATION", "dangerous-git-reset-hard",
		`git\s+reset\s+--hard`,
		"discards uncommitted work")
	add(TierDangerous, "VCS_MUTATION", "dangerous-git-clean-fd",
		`git\s+clean\s+-fd`,
		"deletes untracked files")
	add(TierDangerous, "PROCESS_CONTROL", "dangerous-stop-computer",
		`Stop-Computer\b`,
		"shuts down the host")
	add(TierDangerous, "PROCESS_CONTROL", "dangerous-restart-computer",
		`Restart-Computer\b`,
		"reboots the host")
	add(TierDangerous, "SERVICE_MUTATION", "dangerous-stop-service-wildcard",
		`Stop-Service\s+.*\*`,
		"stops services matching a wildcard")
	add(TierDangerous, "REGISTRY_MUTATION", "dangerous-remove-item-registry",
		`Remove-Item\s+.*HKLM:|Remove-Item\s+.*HKCU:`,
		"deletes a registry key")
	add(TierDangerous, "DATA_DESTRUCTIVE", "dangerous-sql-delete-where",
		`DELETE\s+FROM.*WHERE`,
		"conditional row deletion")
	add(TierDangerous, "ACCOUNT_MUTATION", "dangerous-remove-local-user",
		`Remove-LocalUser\b`,
		"deletes a local account")

	// --- RISKY: requires confirmation unless already learned safe.
	add(TierRisky, "OS_DESTRUCTIVE", "risky-remove-item",
		`^Remove-Item\b`,
		"generic delete, scope depends on arguments")
	add(TierRisky, "VCS_MUTATION", "risky-git-branch-delete",
		`git\s+branch\s+-[dD]\b`,
		"deletes a local branch")
	add(TierRisky, "VCS_MUTATION", "risky-git-stash-drop",
		`git\s+stash\s+drop`,
		"drops a stash entry")
	add(TierRisky, "PACKAGE_MUTATION", "risky-uninstall-package",
		`Uninstall-Package\b|npm\s+uninstall|pip\s+uninstall`,
		"removes an installed package")
	add(TierRisky, "NETWORK_MUTATION", "risky-new-netfirewallrule",
		`New-NetFirewallRule\b`,
		"adds a firewall rule")
	add(TierRisky, "PROCESS_CONTROL", "risky-stop-process",
		`Stop-Process\b`,
		"terminates a process")

	// --- SAFE: skip confirmation entirely.
	add(TierSafe, "READ_ONLY", "safe-get-cmdlets",
		`^Get-[A-Za-z]+\b`,
		"read-only Get-* cmdlet")
	add(TierSafe, "READ_ONLY", "safe-write-output",
		`^Write-(Output|Host|Verbose|Information)\b`,
		"writes text, no side effects")
	add(TierSafe, "READ_ONLY", "safe-test-path",
		`^Test-(Path|Connection|NetConnection)\b`,
		"read-only test cmdlet")
	add(TierSafe, "VCS_READ", "safe-git-status",
		`^git\s+(status|log|diff|show|branch)(\s|$)`,
		"read-only git query")
	add(TierSafe, "FS_TEMP_CLEANUP", "safe-remove-item-temp-ext",
		`^Remove-Item\s+\S+\.(log|tmp|bak)$`,
		"removing a single disposable file by extension")

	return out
}
