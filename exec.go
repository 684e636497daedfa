package bitsvg

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/esimov/bitsvg/utils"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// Ops describes a batch or single image conversion.
type Ops struct {
	// Src is an image file, a directory, a URL or PipeName for stdin.
	Src string
	// Dst is the SVG file, the output directory or PipeName for stdout.
	Dst      string
	PipeName string
	// Workers is the number of images converted concurrently in directory mode.
	Workers int
	// Status receives the progress messages; nil means stderr.
	Status io.Writer
}

// result holds the outcome of converting one file.
type result struct {
	path string
	err  error
}

// Execute converts the source described by op. Directories are walked
// recursively and their images are converted by a pool of workers into
// op.Dst, keeping the base names with an .svg extension. The returned error
// is the last conversion error, if any.
func (p *Processor) Execute(ctx context.Context, op *Ops) error {
	if op.Status == nil {
		op.Status = os.Stderr
	}

	src := op.Src
	// Check if source path is a local image or URL.
	if utils.IsValidUrl(src) {
		f, err := utils.DownloadImage(src)
		if err != nil {
			return errors.Wrap(err, "failed to load the source image")
		}
		f.Close()
		defer os.Remove(f.Name())
		src = f.Name()
	}

	var (
		info os.FileInfo
		err  error
	)
	// Check if the source is a pipe name or a regular file.
	if src == op.PipeName {
		info, err = os.Stdin.Stat()
	} else {
		info, err = os.Stat(src)
	}
	if err != nil {
		return errors.Wrap(err, "failed to load the source image")
	}

	now := time.Now()

	switch mode := info.Mode(); {
	case mode.IsDir():
		err = p.executeDir(ctx, op, src)
	case mode.IsRegular() || mode&os.ModeNamedPipe != 0: // check for regular files or pipe names
		ext := filepath.Ext(op.Dst)
		if ext != ".svg" && op.Dst != op.PipeName {
			return errors.Errorf("%v file type not supported, the output must be an .svg file", ext)
		}
		err = p.executeFile(ctx, op, src)
	default:
		return errors.Errorf("unsupported source %s", op.Src)
	}

	if err == nil {
		fmt.Fprintf(op.Status, "\nExecution time: %s\n",
			utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
	}
	return err
}

func (p *Processor) executeDir(ctx context.Context, op *Ops, src string) error {
	if err := os.MkdirAll(op.Dst, 0755); err != nil {
		return errors.Wrap(err, "unable to create the destination directory")
	}

	workers := workerCount(op.Workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan result)
	paths, errc := walkDir(ctx, src, validExtensions)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			p.consumer(ctx, op, ch, paths)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	var lastErr error
	for res := range ch {
		if res.err != nil {
			lastErr = res.err
		}
		op.printOpStatus(res.path, res.err)
	}
	if err := <-errc; err != nil {
		return err
	}
	return lastErr
}

// workerCount returns the pool size for n requested workers. Zero or less
// means one per CPU; the pool never exceeds maxWorkers.
func workerCount(n int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return utils.Clamp(n, 1, maxWorkers)
}

// consumer reads the path names from the paths channel and converts every source image.
func (p *Processor) consumer(ctx context.Context, op *Ops, res chan<- result, paths <-chan string) {
	for src := range paths {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		dst := filepath.Join(op.Dst, base+".svg")
		err := p.convert(ctx, op, src, dst)

		select {
		case <-ctx.Done():
			return
		case res <- result{path: dst, err: err}:
		}
	}
}

func (p *Processor) executeFile(ctx context.Context, op *Ops, src string) error {
	var spinner *utils.Spinner
	if term.IsTerminal(int(os.Stderr.Fd())) && op.Status == os.Stderr {
		msg := fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ BITSVG", utils.StatusMessage),
			utils.DecorateText("⇢ vectorizing image...", utils.DefaultMessage),
		)
		spinner = utils.NewSpinner(msg, time.Millisecond*80, true)
		spinner.Start()
		defer spinner.RestoreCursor()
	}

	err := p.convert(ctx, op, src, op.Dst)
	if spinner != nil {
		if err != nil {
			spinner.StopMsg = fmt.Sprintf("%s %s %s\n",
				utils.DecorateText("⚡ BITSVG", utils.StatusMessage),
				utils.DecorateText("vectorizing image failed...", utils.DefaultMessage),
				utils.DecorateText("✘", utils.ErrorMessage),
			)
		} else {
			spinner.StopMsg = fmt.Sprintf("%s %s %s\n",
				utils.DecorateText("⚡ BITSVG", utils.StatusMessage),
				utils.DecorateText("⇢", utils.DefaultMessage),
				utils.DecorateText("the image has been vectorized successfully ✔", utils.SuccessMessage),
			)
		}
		spinner.Stop()
	}
	op.printOpStatus(op.Dst, err)
	return err
}

// convert runs the processor over one source and destination path. A
// destination file is removed again when no document could be produced.
func (p *Processor) convert(ctx context.Context, op *Ops, in, out string) error {
	src, dst, err := op.pathToFile(in, out)
	if err != nil {
		return err
	}
	defer func() {
		if f, ok := src.(*os.File); ok && f != os.Stdin {
			f.Close()
		}
	}()

	err = p.Process(ctx, src, dst)
	if f, ok := dst.(*os.File); ok && f != os.Stdout {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		// A failed quality check still leaves a valid document behind.
		if err != nil && !errors.Is(err, ErrRenderFailure) {
			os.Remove(f.Name())
		}
	}
	return err
}

// pathToFile converts the source and destination paths to readable and writable files.
func (op *Ops) pathToFile(in, out string) (io.Reader, io.Writer, error) {
	var (
		src io.Reader
		dst io.Writer
		err error
	)
	// Check if the source is a pipe name or a regular file.
	if in == op.PipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdin")
		}
		src = os.Stdin
	} else {
		src, err = os.Open(in)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to open the source file")
		}
	}

	// Check if the destination is a pipe name or a regular file.
	if out == op.PipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, nil, errors.New("`-` should be used with a pipe for stdout")
		}
		dst = os.Stdout
	} else {
		dst, err = os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			if f, ok := src.(*os.File); ok && f != os.Stdin {
				f.Close()
			}
			return nil, nil, errors.Wrap(err, "unable to create the destination file")
		}
	}
	return src, dst, nil
}

// printOpStatus displays the relevant information about the conversion of one file.
func (op *Ops) printOpStatus(fname string, err error) {
	if err != nil {
		fmt.Fprintf(op.Status, "%s%s",
			utils.DecorateText("\nError vectorizing the image: ", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("%s\n\tReason: %v\n", fname, err), utils.DefaultMessage),
		)
		return
	}
	if fname != op.PipeName {
		var size string
		if fi, err := os.Stat(fname); err == nil {
			size = " (" + utils.FormatBytes(fi.Size()) + ")"
		}
		fmt.Fprintf(op.Status, "\nThe SVG has been saved as: %s%s %s\n",
			utils.DecorateText(filepath.Base(fname), utils.SuccessMessage),
			size,
			utils.DefaultColor,
		)
	}
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported image to a new channel.
// It finishes when the context is cancelled.
func walkDir(ctx context.Context, src string, srcExts []string) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !isValidExtension(strings.ToLower(filepath.Ext(d.Name())), srcExts) {
				return nil
			}
			select {
			case <-ctx.Done():
				return errors.New("directory walk cancelled")
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// isValidExtension checks for the supported extensions.
func isValidExtension(ext string, extensions []string) bool {
	for _, ex := range extensions {
		if ex == ext {
			return true
		}
	}
	return false
}
