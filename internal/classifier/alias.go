package classifier

import (
	"regexp"
	"strings"

	"github.com/mattn/go-shellwords"
)

// aliasMap is the built-in PowerShell alias table used for classification
// resolution (§4.2 step 3). Resolution only affects which pattern matches;
// the original text is still what is eventually spawned.
var aliasMap = map[string]string{
	"iex":   "Invoke-Expression",
	"ls":    "Get-ChildItem",
	"dir":   "Get-ChildItem",
	"gci":   "Get-ChildItem",
	"rm":    "Remove-Item",
	"ri":    "Remove-Item",
	"del":   "Remove-Item",
	"erase": "Remove-Item",
	"rd":    "Remove-Item",
	"rmdir": "Remove-Item",
	"cat":   "Get-Content",
	"gc":    "Get-Content",
	"type":  "Get-Content",
	"cp":    "Copy-Item",
	"copy":  "Copy-Item",
	"mv":    "Move-Item",
	"move":  "Move-Item",
	"ps":    "Get-Process",
	"kill":  "Stop-Process",
	"spps":  "Stop-Process",
	"gsv":   "Get-Service",
	"gp":    "Get-ItemProperty",
	"gm":    "Get-Member",
	"iwr":   "Invoke-WebRequest",
	"curl":  "Invoke-WebRequest",
	"wget":  "Invoke-WebRequest",
	"ipcsv": "Import-Csv",
	"epcsv": "Export-Csv",
	"echo":  "Write-Output",
	"write": "Write-Output",
	"cd":    "Set-Location",
	"chdir": "Set-Location",
	"sl":    "Set-Location",
	"pwd":   "Get-Location",
	"gl":    "Get-Location",
	"cls":   "Clear-Host",
	"clear": "Clear-Host",
}

var firstTokenRE = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_.\-]*)`)

// ResolveAlias looks up the first token of commandText in the built-in alias
// table. It returns the original token, the resolved cmdlet name, and
// whether a resolution happened.
func ResolveAlias(commandText string) (original, resolved string, ok bool) {
	m := firstTokenRE.FindStringSubmatch(commandText)
	if m == nil {
		return "", "", false
	}
	token := m[1]
	cmdlet, found := aliasMap[token]
	if !found {
		return "", "", false
	}
	return token, cmdlet, true
}

// substituteFirstToken replaces the first token of commandText with
// replacement, for classification purposes only.
func substituteFirstToken(commandText, replacement string) string {
	loc := firstTokenRE.FindStringSubmatchIndex(commandText)
	if loc == nil {
		return commandText
	}
	return commandText[:loc[2]] + replacement + commandText[loc[3]:]
}

// resolvePipelineAliases resolves aliases at the head of every pipeline
// segment, not just the first token of the whole string, so a command like
// "gci C:\ | rm" has its second stage recognized as Remove-Item too (§4.2
// step 3). It tokenizes with a shell-word splitter so quoted arguments
// containing "|" are not mistaken for a pipeline boundary. original/resolved
// report the first alias substitution made, for SecurityAssessment's
// OriginalAlias/ResolvedCmdlet fields. On any tokenization failure
// (PowerShell-specific syntax a POSIX-style splitter can't parse) it falls
// back to whole-string first-token resolution.
func resolvePipelineAliases(commandText string) (classifyText, original, resolved string) {
	parser := shellwords.NewParser()
	tokens, err := parser.Parse(commandText)
	if err != nil || len(tokens) == 0 {
		if orig, res, ok := ResolveAlias(commandText); ok {
			return substituteFirstToken(commandText, res), orig, res
		}
		return commandText, "", ""
	}

	var segments [][]string
	cur := []string{}
	for _, tok := range tokens {
		if tok == "|" {
			segments = append(segments, cur)
			cur = []string{}
			continue
		}
		cur = append(cur, tok)
	}
	segments = append(segments, cur)

	for i, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if cmdlet, ok := aliasMap[seg[0]]; ok {
			if original == "" {
				original, resolved = seg[0], cmdlet
			}
			segments[i][0] = cmdlet
		}
	}

	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = strings.Join(seg, " ")
	}
	return strings.Join(parts, " | "), original, resolved
}
