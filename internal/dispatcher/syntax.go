package dispatcher

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/opsgate/slb-mcp-gateway/internal/rpctransport"
)

type syntaxCheckArgs struct {
	Script   string `json:"script"`
	FilePath string `json:"filePath"`
}

type syntaxCheckResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// handleSyntaxCheck implements powershell-syntax-check: a read-only,
// classify-free parse check that never reaches the Supervisor (§11). When a
// `pwsh` binary is on PATH it is asked to tokenize the script; otherwise a
// best-effort brace/quote-balance check stands in.
func (d *Dispatcher) handleSyntaxCheck(arguments json.RawMessage) (any, *rpctransport.Error) {
	var args syntaxCheckArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, invalidParams(err.Error())
	}

	script := args.Script
	if args.FilePath != "" {
		contents, err := os.ReadFile(args.FilePath)
		if err != nil {
			return nil, invalidParams("reading filePath: " + err.Error())
		}
		script = string(contents)
	}
	if script == "" {
		return nil, invalidParams("one of script or filePath is required")
	}

	if path, err := exec.LookPath("pwsh"); err == nil {
		return tokenizeWithPwsh(path, script), nil
	}
	return balanceCheck(script), nil
}

// tokenizeWithPwsh shells out to the PSParser tokenizer in parse-only mode;
// a non-zero exit or stderr output is reported as a syntax error without
// attempting to recover the parser's column/line detail.
func tokenizeWithPwsh(pwshPath, script string) syntaxCheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	escaped := strings.ReplaceAll(script, "'", "''")
	cmd := exec.CommandContext(ctx, pwshPath, "-NoProfile", "-NonInteractive", "-Command",
		"$e=$null; [System.Management.Automation.PSParser]::Tokenize('"+escaped+"', [ref]$e) | Out-Null; if ($e) { $e | ForEach-Object { $_.Message }; exit 1 }")

	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return syntaxCheckResult{IsValid: false, Errors: []string{msg}, Warnings: []string{}}
	}
	return syntaxCheckResult{IsValid: true, Errors: []string{}, Warnings: []string{}}
}

// balanceCheck is the no-pwsh fallback: it cannot catch semantic errors, but
// catches the common copy-paste mistakes agents make (unterminated strings,
// unbalanced braces/parens/brackets).
func balanceCheck(script string) syntaxCheckResult {
	var errs, warnings []string

	pairs := map[rune]rune{'}': '{', ')': '(', ']': '['}
	var stack []rune
	inSingle, inDouble := false, false

	for _, r := range script {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
			continue
		case r == '{' || r == '(' || r == '[':
			stack = append(stack, r)
		case r == '}' || r == ')' || r == ']':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				errs = append(errs, "unbalanced '"+string(r)+"'")
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		errs = append(errs, "unclosed opening bracket(s)")
	}
	if inSingle || inDouble {
		errs = append(errs, "unterminated string literal")
	}
	if len(errs) == 0 {
		warnings = append(warnings, "pwsh not found on PATH; only brace/quote balance was checked")
	}

	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return syntaxCheckResult{IsValid: len(errs) == 0, Errors: errs, Warnings: warnings}
}
