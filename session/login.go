package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/morganhein/dutcli/expect"
	"github.com/morganhein/dutcli/schema"
)

// Login banner patterns, one per firmware family. The banner is only a
// first guess: "show version" output decides the flavor for good.
var (
	// The hostname in the EOS banner is \S+ because EOS does not configure
	// the management network by default.
	eosBanner   = regexp.MustCompile(`\r\n\S+ login: `)
	mosBanner   = regexp.MustCompile(`Metamako MOS \S+ \S+ (/dev/)?ttyS0\r\n\s*\r\n.*login: `)
	abootPrompt = regexp.MustCompile(`Aboot# `)

	lastLogin      = regexp.MustCompile(`Last login:.*\r\n`)
	passwordPrompt = regexp.MustCompile(`Password:`)
	loginPrompt    = regexp.MustCompile(`login:`)
	loginIncorrect = regexp.MustCompile(`Login incorrect`)
	traceback      = regexp.MustCompile(`Traceback`)

	serialField  = regexp.MustCompile(`Serial number:[ \t]*(.*)`)
	microField   = regexp.MustCompile(`System management controller version: (\d+)`)
	hardwareLine = regexp.MustCompile(`Hardware version:`)
)

type loginState int

const (
	stateSearchingPrompt loginState = iota
	stateUsernameSent
	statePasswordStage
	stateAtPrompt
	stateBroken
)

func (st loginState) String() string {
	switch st {
	case stateSearchingPrompt:
		return "searching_prompt"
	case stateUsernameSent:
		return "username_sent"
	case statePasswordStage:
		return "password_stage"
	case stateAtPrompt:
		return "at_prompt"
	default:
		return "broken"
	}
}

// Login negotiates the terminal up to a usable prompt: banner detection and
// flavor guess, username/password stages, recovery from broken or leftover
// CLI state, then flavor-specific session setup. budget bounds the banner
// search wall-clock; it is also the deadline for the slowest setup command.
func (s *Session) Login(budget time.Duration) error {
	if budget <= 0 {
		budget = s.timeout
	}
	st := stateSearchingPrompt
	for {
		log.Debugf("login state: %s", st)
		var err error
		switch st {
		case stateSearchingPrompt:
			st, err = s.searchBanner(budget)
		case stateUsernameSent:
			st, err = s.usernameStage()
		case statePasswordStage:
			st, err = s.passwordStage()
		case stateAtPrompt:
			return s.postLogin(budget)
		case stateBroken:
			if err == nil {
				err = &schema.LoginFatalError{Reason: "CLI left in an unrecoverable state"}
			}
			return err
		}
		if err != nil {
			return err
		}
	}
}

// searchBanner polls for any of the three family banners, poking the
// terminal between polls to provoke a fresh one. Bounded by wall clock,
// not attempts.
func (s *Session) searchBanner(budget time.Duration) (loginState, error) {
	if s.clientCmd == "ssh" {
		// The ssh client authenticates on its own; there is no banner.
		return statePasswordStage, nil
	}
	start := time.Now()
	for i := 0; ; i++ {
		if elapsed := time.Since(start); elapsed > budget {
			return stateBroken, &schema.LoginTimeoutError{Budget: budget, Elapsed: elapsed}
		}

		idx, err := s.m.Expect(bannerPoll, expect.Timeout, mosBanner, eosBanner, abootPrompt)
		if err != nil {
			return stateBroken, err
		}
		log.Debugf("got a login banner index of %d", idx)

		switch idx {
		case 1:
			s.flavor = schema.FlavorMOS
			return stateUsernameSent, nil
		case 2:
			s.flavor = schema.FlavorEOS
			return stateUsernameSent, nil
		case 3:
			s.flavor = schema.FlavorAboot
			// Aboot drops straight to a shell; a bare newline settles it.
			if err := s.sendLine(""); err != nil {
				return stateBroken, err
			}
			return statePasswordStage, nil
		}

		// Note that blindly sending EOFs and INTRs may break some of the
		// init scripts if the device is rebooting.
		if i%2 == 0 {
			err = s.sendEOF()
		} else {
			err = s.sendIntrByte()
		}
		if err != nil {
			return stateBroken, err
		}
	}
}

func (s *Session) usernameStage() (loginState, error) {
	if err := s.sendLine(s.opts.Username); err != nil {
		return stateBroken, err
	}
	echo := regexp.MustCompile(regexp.QuoteMeta(s.opts.Username) + `(\r)?\r\n`)
	if _, err := s.m.Expect(echoTimeout, echo); err != nil {
		return stateBroken, fmt.Errorf("username was not echoed back: %w", err)
	}
	return statePasswordStage, nil
}

func (s *Session) passwordStage() (loginState, error) {
	if s.flavor != schema.FlavorAboot {
		// A password prompt can show up even when the user has none
		// configured, e.g. when a TACACS server is in the loop.
		idx, err := s.m.Expect(echoTimeout, expect.Timeout, lastLogin, passwordPrompt, abootPrompt)
		if err != nil {
			return stateBroken, err
		}
		if idx == 2 {
			if err := s.sendLine(s.opts.Password); err != nil {
				return stateBroken, err
			}
		}
	}

	log.Info("Logged in. Waiting for prompt.")
	if _, err := s.Resync(s.timeout); err != nil {
		if !isPromptTimeout(err) {
			return stateBroken, err
		}
		if err := s.recoverLogin(); err != nil {
			return stateBroken, err
		}
	}

	// Sometimes there are weird control characters printed as "^[[0n" on
	// the first line that escape the control code filtering. Resync just
	// in case.
	if err := s.sendLine(""); err != nil {
		return stateBroken, err
	}
	if _, err := s.Resync(s.timeout); err != nil {
		return stateBroken, err
	}
	return stateAtPrompt, nil
}

// recoverLogin handles a prompt that never arrived: either the CLI is
// corrupted (stack trace), or a previous run left a password configured and
// the fallback credential gets us in.
func (s *Session) recoverLogin() error {
	idx, err := s.m.Expect(echoTimeout, traceback, loginIncorrect, passwordPrompt)
	if err != nil {
		if !isMatchTimeout(err) {
			return err
		}
		// No distress marker showed up; the CLI may just have been slow.
		if _, err := s.Resync(s.timeout); err != nil {
			return &schema.LoginFatalError{Reason: "prompt never recovered after login"}
		}
		return nil
	}
	if idx == 0 {
		return &schema.LoginFatalError{Reason: "CLI is corrupted, try logging in as root"}
	}

	err = s.retryWithFallback(idx == 1)
	if err == nil {
		// The retry ran all the way into a stack trace marker.
		return &schema.LoginFatalError{Reason: "CLI is corrupted, try logging in as root"}
	}
	if !isMatchTimeout(err) {
		return err
	}
	if _, err := s.Resync(s.timeout); err != nil {
		return &schema.LoginFatalError{Reason: "prompt never recovered after fallback login"}
	}
	return nil
}

// retryWithFallback re-attempts the login with the fallback credential,
// restarting from the login prompt when the first attempt was rejected
// outright. A nil return means a stack trace followed, which is fatal in
// the caller.
func (s *Session) retryWithFallback(fromLoginPrompt bool) error {
	if fromLoginPrompt {
		if _, err := s.m.Expect(bannerPoll, loginPrompt); err != nil {
			return err
		}
		if err := s.sendLine(s.opts.Username); err != nil {
			return err
		}
		echo := regexp.MustCompile(regexp.QuoteMeta(s.opts.Username) + `(\r)?\r\n`)
		if _, err := s.m.Expect(echoTimeout, echo); err != nil {
			return err
		}
		if _, err := s.m.Expect(echoTimeout, passwordPrompt); err != nil {
			return err
		}
	}
	if err := s.sendLine(s.opts.FallbackPassword); err != nil {
		return err
	}
	if _, err := s.m.Expect(echoTimeout, lastLogin); err != nil {
		return err
	}
	_, err := s.m.Expect(echoTimeout, traceback)
	return err
}

// postLogin is the standard setup once a prompt is in hand: version probe,
// authoritative flavor detection, privilege elevation and flavor-specific
// housekeeping.
func (s *Session) postLogin(budget time.Duration) error {
	if s.flavor != schema.FlavorAboot && s.opts.Username != "root" {
		showVersion, err := s.SendSimple("show version", echoTimeout)
		if err != nil {
			return err
		}
		if m := serialField.FindStringSubmatch(showVersion); m != nil {
			s.serial = m[1]
		}
		if m := microField.FindStringSubmatch(showVersion); m != nil {
			s.microVersion = m[1]
		}

		// MOS has no 'Hardware version' field in "show version". This,
		// not the login banner, decides the flavor.
		if hardwareLine.MatchString(showVersion) {
			s.flavor = schema.FlavorEOS
		} else {
			s.flavor = schema.FlavorMOS
		}

		if err := s.elevate(budget); err != nil {
			return err
		}

		if _, err := s.SendSimple(fmt.Sprintf("bash echo ===> determined the %s CLI flavor", s.flavor), 0); err != nil {
			return err
		}

		if s.flavor == schema.FlavorMOS {
			if _, err := s.SendSimple("set debug 1", echoTimeout); err != nil {
				return err
			}
			if s.opts.EnableCLITimeout {
				if err := s.SetCLITimeout(-1); err != nil {
					return err
				}
			}
			s.probeGeneration()
			s.probeWatchdog()
		}

		if _, err := s.Send("show clock", budget); err != nil {
			return err
		}
	}

	if s.clientCmd != "ssh" {
		// EOS and Aboot wrap lines at 80 chars on the console by default,
		// which breaks the command echo check, so claim a very wide
		// terminal. If our command lines ever hit 1000 chars we're doing
		// something wrong :)
		switch s.flavor {
		case schema.FlavorAboot:
			if _, err := s.Send("stty cols 1000", 0); err != nil {
				return err
			}
		case schema.FlavorEOS:
			if _, err := s.Send("bash stty cols 1000", 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// elevate enters privileged mode, falling back to the well-known credential
// when a previous run left an enable password behind.
func (s *Session) elevate(budget time.Duration) error {
	_, err := s.SendSimple("enable", 0)
	if err == nil {
		return nil
	}
	if !isPromptTimeout(err) && !isMatchTimeout(err) {
		return err
	}
	if _, err := s.m.Expect(echoTimeout, passwordPrompt); err != nil {
		return err
	}
	if err := s.sendLine(s.opts.FallbackPassword); err != nil {
		return err
	}
	out, err := s.Resync(budget)
	if err != nil {
		return err
	}
	_, err = ProcessOutput(out)
	return err
}

// probeGeneration asks the management plane for the chassis generation,
// falling back to a hardware register read. Failure leaves the generation
// unset.
func (s *Session) probeGeneration() {
	if out, err := s.Send("bash python -m hal property chassis chassis_gen", 0); err == nil {
		if gen, err := strconv.Atoi(strings.TrimSpace(out)); err == nil {
			s.deviceGen = gen
			return
		}
	}
	out, err := s.Send("bash i2cget -f -y 1 0x77 0x8 w", 0)
	if err != nil {
		return
	}
	ver, err := strconv.ParseInt(strings.TrimSpace(out), 0, 64)
	if err != nil {
		log.Warningf("unreadable chassis register value %q", strings.TrimSpace(out))
		return
	}
	if ver < 0x200 {
		s.deviceGen = 1
	} else {
		s.deviceGen = 2
	}
}

// probeWatchdog reads the patch-version register on Gen2 devices to learn
// whether the platform watchdog is supported. Failure leaves the field
// unset.
func (s *Session) probeWatchdog() {
	if s.deviceGen != 2 {
		return
	}
	out, err := s.Send("bash i2cget -f -y 1 0x77 0x7e b", 0)
	if err != nil {
		return
	}
	supported := strings.TrimSpace(out) != "0xdb"
	s.wdSupported = &supported
}
