//go:build windows

package platform

import (
	"context"
	"deskpilot/pkg/capability"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func newSet(run runner, dir string) capability.Set {
	ps := powershell{run: run}
	return capability.Set{
		Brightness: &windowsBrightness{ps: ps},
		Volume:     &windowsVolume{ps: ps},
		Screenshot: &windowsScreenshotter{ps: ps, dir: dir},
		Battery:    &windowsBattery{ps: ps},
		Clock:      capability.NewSystemClock(),
		Launcher:   processLauncher{},
	}
}

// DefaultApps is the launch table used when config.json does not provide one.
func DefaultApps() map[string]string {
	return map[string]string{
		"calculator": "C:/Windows/System32/calc.exe",
		"notepad":    "C:/Windows/System32/notepad.exe",
		"paint":      "C:/Windows/System32/mspaint.exe",
		"explorer":   "C:/Windows/explorer.exe",
	}
}

func launchCommand(path string) (string, []string) {
	return path, nil
}

// powershell runs a script with UTF-8 output so parsing does not depend on the console code page.
type powershell struct {
	run runner
}

func (p powershell) exec(ctx context.Context, script string) (string, error) {
	utf8Script := "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; $ErrorActionPreference = 'Stop'; " + script
	return p.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", utf8Script)
}

// windowsBrightness uses the WMI monitor classes; works on laptop panels only.
type windowsBrightness struct {
	ps powershell
}

func (b *windowsBrightness) Current(ctx context.Context) (int, error) {
	out, err := b.ps.exec(ctx, "(Get-CimInstance -Namespace root/WMI -ClassName WmiMonitorBrightness | Select-Object -First 1).CurrentBrightness")
	if err != nil {
		return 0, err
	}
	return parseFirstInt(out)
}

func (b *windowsBrightness) Set(ctx context.Context, level int) error {
	script := fmt.Sprintf("$m = Get-CimInstance -Namespace root/WMI -ClassName WmiMonitorBrightnessMethods | Select-Object -First 1; "+
		"Invoke-CimMethod -InputObject $m -MethodName WmiSetBrightness -Arguments @{Timeout=1; Brightness=[byte]%d} | Out-Null", level)
	_, err := b.ps.exec(ctx, script)
	return err
}

// coreAudioType exposes the default render endpoint volume through IAudioEndpointVolume.
const coreAudioType = `Add-Type -TypeDefinition @'
using System.Runtime.InteropServices;
[Guid("5CDF2C82-841E-4546-9722-0CF74078229A"), InterfaceType(ComInterfaceType.InterfaceIsIUnknown)]
interface IAudioEndpointVolume {
  int f(); int g(); int h(); int i();
  int SetMasterVolumeLevelScalar(float fLevel, System.Guid pguidEventContext);
  int j();
  int GetMasterVolumeLevelScalar(out float pfLevel);
}
[Guid("D666063F-1587-4E43-81F1-B948E807363F"), InterfaceType(ComInterfaceType.InterfaceIsIUnknown)]
interface IMMDevice {
  int Activate(ref System.Guid id, int clsCtx, int activationParams, out IAudioEndpointVolume aev);
}
[Guid("A95664D2-9614-4F35-A746-DE8DB63617E6"), InterfaceType(ComInterfaceType.InterfaceIsIUnknown)]
interface IMMDeviceEnumerator {
  int f();
  int GetDefaultAudioEndpoint(int dataFlow, int role, out IMMDevice endpoint);
}
[ComImport, Guid("BCDE0395-E52F-467C-8E3D-C4579291692E")] class MMDeviceEnumeratorComObject { }
public class DeskpilotAudio {
  static IAudioEndpointVolume Endpoint() {
    var enumerator = new MMDeviceEnumeratorComObject() as IMMDeviceEnumerator;
    IMMDevice dev = null;
    Marshal.ThrowExceptionForHR(enumerator.GetDefaultAudioEndpoint(0, 1, out dev));
    IAudioEndpointVolume epv = null;
    var epvid = typeof(IAudioEndpointVolume).GUID;
    Marshal.ThrowExceptionForHR(dev.Activate(ref epvid, 23, 0, out epv));
    return epv;
  }
  public static float Volume {
    get { float v = -1; Marshal.ThrowExceptionForHR(Endpoint().GetMasterVolumeLevelScalar(out v)); return v; }
    set { Marshal.ThrowExceptionForHR(Endpoint().SetMasterVolumeLevelScalar(value, System.Guid.Empty)); }
  }
}
'@
`

type windowsVolume struct {
	ps powershell
}

func (v *windowsVolume) Current(ctx context.Context) (float64, error) {
	out, err := v.ps.exec(ctx, coreAudioType+"[DeskpilotAudio]::Volume.ToString([Globalization.CultureInfo]::InvariantCulture)")
	if err != nil {
		return 0, err
	}
	return parseFirstFloat(out)
}

func (v *windowsVolume) Set(ctx context.Context, level float64) error {
	value := strconv.FormatFloat(level, 'f', 4, 64)
	_, err := v.ps.exec(ctx, coreAudioType+"[DeskpilotAudio]::Volume = "+value)
	return err
}

type windowsScreenshotter struct {
	ps  powershell
	dir string
}

// Capture grabs the primary screen with System.Drawing, no external tools needed.
func (s *windowsScreenshotter) Capture(ctx context.Context) (string, error) {
	path, err := screenshotPath(s.dir, time.Now())
	if err != nil {
		return "", err
	}
	script := fmt.Sprintf(`
Add-Type -AssemblyName System.Windows.Forms
Add-Type -AssemblyName System.Drawing
$Screen = [System.Windows.Forms.Screen]::PrimaryScreen
$Bitmap = New-Object System.Drawing.Bitmap($Screen.Bounds.Width, $Screen.Bounds.Height)
$Graphics = [System.Drawing.Graphics]::FromImage($Bitmap)
$Graphics.CopyFromScreen($Screen.Bounds.Left, $Screen.Bounds.Top, 0, 0, $Bitmap.Size)
$Bitmap.Save('%s', [System.Drawing.Imaging.ImageFormat]::Png)
$Graphics.Dispose()
$Bitmap.Dispose()
`, strings.ReplaceAll(path, "'", "''"))

	if _, err := s.ps.exec(ctx, script); err != nil {
		return "", fmt.Errorf("failed to take screenshot via powershell: %w", err)
	}
	return path, nil
}

type windowsBattery struct {
	ps powershell
}

func (b *windowsBattery) Query(ctx context.Context) (capability.BatteryStatus, error) {
	out, err := b.ps.exec(ctx, `$b = Get-CimInstance Win32_Battery | Select-Object -First 1; if (-not $b) { throw 'no battery present' }; "$($b.EstimatedChargeRemaining) $($b.BatteryStatus)"`)
	if err != nil {
		return capability.BatteryStatus{}, err
	}
	return parseWin32Battery(out)
}
