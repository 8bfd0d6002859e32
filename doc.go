/*
Package ballot is the cryptographic core of an election: it generates a key
pair over a safe-prime group, encrypts one-hot ballots option by option with
exponential ElGamal, attaches a disjunctive zero-knowledge proof to every
ciphertext so that anybody can check it holds a 0 or a 1, and tallies a
section by multiplying the ciphertexts of each option together and decrypting
the product through a small discrete-log table.

The sub-packages are layered as follows:

	group     safe-prime group parameters and their generation
	elgamal   keys, the cipher, the 0/1 proof and the lookup table
	section   vote shapes, section and ballot encryption, tally
	store     bbolt persistence of keys and encrypted ballots
	config    TOML configuration of the command-line tool
	ballotbox the command-line tool itself

Everything that talks to a network, a web front-end or a session layer lives
outside of this module and hands plaintext ballots in and takes ciphertexts
out.
*/
package ballot
