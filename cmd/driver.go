/*
DESCRIPTION
  driver.go holds the I/O plumbing shared by the rewriting subcommands
  (apply, remove, generate): opening the input/output IVF files, prompting
  before an overwrite, and running packets through a rewrite.Assembler.

AUTHORS
  av1grain contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ausocean/av1grain/av1err"
	"github.com/ausocean/av1grain/codec/av1/obu"
	"github.com/ausocean/av1grain/codec/av1/rewrite"
	"github.com/ausocean/av1grain/container/ivf"
)

// openOutput opens path for writing, truncating it, after confirming with
// the user unless force is set or the file does not yet exist.
func openOutput(path string, force bool) (*os.File, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			if !confirmOverwrite(path) {
				return nil, errors.Errorf("not overwriting %s", path)
			}
		}
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

func confirmOverwrite(path string) bool {
	fmt.Fprintf(os.Stderr, "%s exists, overwrite? [y/N] ", path)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes"
}

// rewriteIVF reads in, rewrites every Frame/FrameHeader OBU's grain header
// through policy, and writes the result to out.
func rewriteIVF(in io.Reader, out io.Writer, policy rewrite.Policy, advance func(ptsMillis int64), log func(packet int, err error)) error {
	demux, err := ivf.NewDemuxer(in)
	if err != nil {
		return err
	}
	hdr := demux.Header()
	if got := string(hdr.FourCC[:]); got != ivf.FourCC {
		return av1err.New(av1err.UnsupportedFeature).WithField("codec " + got)
	}
	mux := ivf.NewMuxer(out, demux.Header())

	ctx := obu.NewContext()
	asm := rewrite.NewAssembler(ctx, policy)

	for i := 0; ; i++ {
		pkt, err := demux.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if advance != nil {
			advance(pkt.PTSMillis)
		}

		newData, err := asm.RewritePacket(pkt.Data, 0)
		if err != nil {
			wrapped := errors.Wrapf(err, "packet %d", i)
			if log != nil {
				log(i, wrapped)
			}
			return wrapped
		}
		pkt.Data = newData

		if err := mux.WritePacket(pkt); err != nil {
			return err
		}
	}
	return mux.Close()
}
