package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/domain/ports"
	"github.com/carlosrabelo/terminalnator/internal/prompt"
	"github.com/carlosrabelo/terminalnator/platform"
)

// RunCommand sends one command and waits for the device prompt. Paging
// prompts are answered and removed from the output. A call made while
// another command runs fails immediately with ErrBusy. Timeout, cancellation,
// overflow and transport errors close the session.
func (s *Session) RunCommand(ctx context.Context, text string, timeout time.Duration) (entities.CommandResult, error) {
	const op = "run command"
	if err := s.begin(op); err != nil {
		return entities.CommandResult{Command: text}, err
	}
	defer s.end()
	defer s.recoverPanic()

	return s.run(ctx, text, timeout, op)
}

// PushConfig runs lines in order. With stopOnError a line whose output matches
// the family error pattern ends the push with a *PartialFailure holding the
// results before it. Without it the result is marked Rejected and the push
// continues. Session errors always stop the push.
func (s *Session) PushConfig(ctx context.Context, lines []string, timeout time.Duration, stopOnError bool) ([]entities.CommandResult, error) {
	const op = "push config"
	if err := s.begin(op); err != nil {
		return nil, &PartialFailure{FailedAt: 0, Err: err}
	}
	defer s.end()
	defer s.recoverPanic()

	results := make([]entities.CommandResult, 0, len(lines))
	for k, line := range lines {
		res, err := s.run(ctx, line, timeout, op)
		if err != nil {
			s.record(ports.EventPush, fmt.Sprintf("line %d of %d failed", k+1, len(lines)), "failed")
			return results, &PartialFailure{Completed: results, FailedAt: k, Err: err}
		}
		if res.Rejected && stopOnError {
			s.record(ports.EventPush, fmt.Sprintf("line %d of %d rejected", k+1, len(lines)), "rejected")
			return results, &PartialFailure{
				Completed: results,
				FailedAt:  k,
				Err:       &RejectedError{Command: line, Output: res.Output},
			}
		}
		results = append(results, res)
	}
	s.record(ports.EventPush, fmt.Sprintf("%d lines pushed", len(lines)), "completed")
	return results, nil
}

// Save persists the running configuration with the platform save commands.
func (s *Session) Save(ctx context.Context, timeout time.Duration) ([]entities.CommandResult, error) {
	driver := s.driver
	if driver == nil {
		driver = platform.Generic()
	}
	cmds := driver.SaveCommands()
	if len(cmds) == 0 {
		return nil, nil
	}
	return s.PushConfig(ctx, cmds, timeout, true)
}

// begin moves the session from Ready to Busy and takes the command lock.
func (s *Session) begin(op string) error {
	if st := s.State(); st == StateClosing || st == StateClosed {
		return &Error{Kind: KindClosed, ProfileID: s.profile.ID, Op: op}
	}
	if !s.cmdMu.TryLock() {
		return &Error{Kind: KindBusy, ProfileID: s.profile.ID, Op: op}
	}
	s.mu.Lock()
	if s.state != StateReady {
		st := s.state
		s.mu.Unlock()
		s.cmdMu.Unlock()
		return &Error{Kind: KindClosed, ProfileID: s.profile.ID, Op: op, Err: fmt.Errorf("session is %s", st)}
	}
	s.state = StateBusy
	s.mu.Unlock()
	s.record(ports.EventState, StateBusy.String(), "")
	return nil
}

func (s *Session) end() {
	s.touch()
	s.mu.Lock()
	ready := s.state == StateBusy
	if ready {
		s.state = StateReady
	}
	s.mu.Unlock()
	if ready {
		s.record(ports.EventState, StateReady.String(), "")
	}
	s.cmdMu.Unlock()
}

// recoverPanic closes the session before letting a panic continue.
func (s *Session) recoverPanic() {
	if r := recover(); r != nil {
		s.closeWithReason(ReasonPanic)
		panic(r)
	}
}

func (s *Session) run(ctx context.Context, text string, timeout time.Duration, op string) (entities.CommandResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	s.record(ports.EventCommand, text, "")
	res, err := s.exec(ctx, text)
	if err != nil {
		return res, s.fail(op, err)
	}
	res.Rejected = s.opts.Matcher.IsError(res.Output, s.family)
	s.logger.Debug("command finished", "command", text, "duration", res.Duration, "rejected", res.Rejected)
	return res, nil
}

// fail converts an exec error to a session *Error and closes the session,
// since the stream position is unknown afterwards.
func (s *Session) fail(op string, err error) error {
	var kind ErrorKind
	var reason string
	switch st := s.State(); {
	case errors.Is(err, ErrOverflow):
		kind, reason, err = KindOverflow, ReasonOverflow, fmt.Errorf("more than %d bytes without a prompt", s.opts.Matcher.MaxBuffer())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind, reason = KindTimeout, ReasonTimeout
	case st == StateClosing || st == StateClosed:
		kind, reason = KindClosed, ReasonDisconnect
	default:
		kind, reason = KindTransport, ReasonTransport
	}
	serr := &Error{Kind: kind, ProfileID: s.profile.ID, Op: op, Err: err}
	s.record(ports.EventError, serr.Error(), kind.String())
	s.logger.Warn("command failed, closing session", "op", op, "err", serr)
	s.closeWithReason(reason)
	return serr
}

// exec writes cmd and reads until the prompt returns.
func (s *Session) exec(ctx context.Context, cmd string) (entities.CommandResult, error) {
	start := time.Now()
	res := entities.CommandResult{Command: cmd}
	if err := s.channel.Write([]byte(cmd + "\n")); err != nil {
		return res, err
	}

	var buf bytes.Buffer
	for {
		if err := s.readChunk(ctx, &buf); err != nil {
			res.Output = cleanOutput(buf.Bytes(), cmd, false)
			res.Duration = time.Since(start)
			return res, err
		}
		switch s.opts.Matcher.Classify(buf.Bytes(), s.family) {
		case prompt.Complete:
			res.Output = cleanOutput(buf.Bytes(), cmd, true)
			res.Duration = time.Since(start)
			return res, nil
		case prompt.NeedMorePaging:
			dropTrailingLine(&buf)
			if err := s.channel.Write([]byte(pagingContinue)); err != nil {
				res.Output = cleanOutput(buf.Bytes(), cmd, false)
				res.Duration = time.Since(start)
				return res, err
			}
		case prompt.Overflow:
			res.Output = cleanOutput(buf.Bytes(), cmd, false)
			res.Truncated = true
			res.Duration = time.Since(start)
			return res, ErrOverflow
		}
	}
}

func dropTrailingLine(buf *bytes.Buffer) {
	buf.Truncate(bytes.LastIndexByte(buf.Bytes(), '\n') + 1)
}

// cleanOutput strips the command echo, the trailing prompt when complete,
// carriage return overwrites, paging markers and terminal control sequences.
func cleanOutput(raw []byte, cmd string, complete bool) string {
	lines := strings.Split(string(raw), "\n")
	if complete && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	echo := strings.TrimSpace(cmd)
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if j := strings.LastIndexByte(line, '\r'); j >= 0 {
			line = line[j+1:]
		}
		line = string(prompt.StripControl([]byte(line)))
		if i == 0 && echo != "" && strings.HasSuffix(strings.TrimSpace(line), echo) {
			continue
		}
		if prompt.IsPaging([]byte(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
